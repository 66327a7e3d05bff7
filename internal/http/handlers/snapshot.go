package handlers

import (
	"net/http"
)

// Snapshot returns the latest committed snapshot.
func (a *API) Snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Snapshot())
}

// Aggregates returns status counts for the latest snapshot.
func (a *API) Aggregates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Aggregates())
}

// Attention lists devices in warning or offline state.
func (a *API) Attention(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.store.Snapshot().NeedsAttention()})
}

// Refresh runs one synchronous refresh cycle.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.store.RefreshNow(r.Context())
	if err != nil {
		a.logger.Warn("manual refresh failed", "err", err)
		writeError(w, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
