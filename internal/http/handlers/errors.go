package handlers

import (
	"errors"
	"net/http"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

// writeServiceError maps domain errors onto the JSON error envelope.
func (a *API) writeServiceError(w http.ResponseWriter, code string, err error) {
	var validation *devicedomain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "invalid_"+validation.Field, validation.Error())
	case errors.Is(err, devicedomain.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
	case errors.Is(err, devicedomain.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Alert not found")
	case errors.Is(err, devicedomain.ErrBackendUnavailable):
		a.logger.Warn("backend unavailable", "op", code, "err", err)
		writeError(w, http.StatusBadGateway, "backend_unavailable", err.Error())
	default:
		a.logger.Error("request failed", "op", code, "err", err)
		writeError(w, http.StatusInternalServerError, code, err.Error())
	}
}

// writeMutation renders a write result. A write whose follow-up refresh failed
// is reported as accepted but unconfirmed.
func (a *API) writeMutation(w http.ResponseWriter, status int, code string, device *devicedomain.Device, err error) {
	if err == nil {
		writeJSON(w, status, devicedomain.MutationResult{Device: device, Confirmed: true})
		return
	}
	if errors.Is(err, devicedomain.ErrRefreshUnconfirmed) {
		writeJSON(w, http.StatusAccepted, devicedomain.MutationResult{
			Device:    device,
			Confirmed: false,
			Warning:   err.Error(),
		})
		return
	}
	a.writeServiceError(w, code, err)
}
