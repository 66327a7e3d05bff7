package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
	"github.com/micro-ha/iot-dashboard/internal/syncstore"
)

// SyncStore is the read side the dashboard renders from.
type SyncStore interface {
	Snapshot() *syncstore.Snapshot
	Aggregates() model.Aggregates
	State() syncstore.State
	RefreshNow(ctx context.Context) (*syncstore.Snapshot, error)
	Listen(fn func(*syncstore.Snapshot)) (cancel func())
}

// API groups HTTP handlers and dependencies.
type API struct {
	devices   devicedomain.Service
	store     SyncStore
	logger    *slog.Logger
	staticDir string
}

// New creates HTTP handlers with explicit dependencies.
func New(
	devices devicedomain.Service,
	store SyncStore,
	logger *slog.Logger,
	staticDir string,
) *API {
	return &API{
		devices:   devices,
		store:     store,
		logger:    logger,
		staticDir: staticDir,
	}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Health reports service liveness and sync store state.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	snapshot := a.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"state":   a.store.State(),
		"version": snapshot.Version,
	})
}

// Static serves frontend assets and SPA fallback.
func (a *API) Static(w http.ResponseWriter, r *http.Request) {
	if a.staticDir == "" {
		writeError(w, http.StatusNotFound, "frontend_missing", "Frontend dist not found")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	cleanPath := strings.TrimPrefix(filepath.Clean("/"+path), "/")
	fullPath := filepath.Join(a.staticDir, cleanPath)
	if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fullPath)
		return
	}
	http.ServeFile(w, r, filepath.Join(a.staticDir, "index.html"))
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
