package handlers

import (
	"net/http"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

// CreateAlert raises an alert for a device.
func (a *API) CreateAlert(w http.ResponseWriter, r *http.Request, deviceID string) {
	var payload devicedomain.AlertInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	alert, err := a.devices.CreateAlert(r.Context(), deviceID, payload)
	if err != nil {
		a.writeServiceError(w, "alert_failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

// ResolveAlert marks an alert resolved.
func (a *API) ResolveAlert(w http.ResponseWriter, r *http.Request, id string) {
	alert, err := a.devices.ResolveAlert(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, "resolve_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
