package handlers

import (
	"errors"
	"net/http"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

// GetDevice returns one device with recent readings and alerts.
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := a.devices.GetDeviceDetail(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, "get_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateDevice adds a device.
func (a *API) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var payload devicedomain.CreateInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	device, err := a.devices.CreateDevice(r.Context(), payload)
	a.writeMutation(w, http.StatusCreated, "create_failed", &device, err)
}

// PatchDevice partially updates a device.
func (a *API) PatchDevice(w http.ResponseWriter, r *http.Request, id string) {
	var payload devicedomain.DevicePatch
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	device, err := a.devices.UpdateDevice(r.Context(), id, payload)
	a.writeMutation(w, http.StatusOK, "patch_failed", &device, err)
}

// DeleteDevice removes a device.
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request, id string) {
	err := a.devices.DeleteDevice(r.Context(), id)
	a.writeMutation(w, http.StatusOK, "delete_failed", nil, err)
}

// RecordReading stores a measurement for a device.
func (a *API) RecordReading(w http.ResponseWriter, r *http.Request, deviceID string) {
	var payload devicedomain.ReadingInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	reading, err := a.devices.RecordReading(r.Context(), deviceID, payload)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"reading": reading, "confirmed": true})
	case errors.Is(err, devicedomain.ErrRefreshUnconfirmed):
		writeJSON(w, http.StatusAccepted, map[string]any{"reading": reading, "confirmed": false, "warning": err.Error()})
	default:
		a.writeServiceError(w, "record_failed", err)
	}
}
