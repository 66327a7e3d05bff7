package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/micro-ha/iot-dashboard/internal/http/handlers"
)

// NewRouter builds full HTTP routing tree for backend API and static frontend.
func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON)
	r.Use(StripIngressPrefix)
	r.Use(RequestLogger(api))

	r.Get("/healthz", api.Health)
	r.Route("/api", func(apiRouter chi.Router) {
		// The stream is long-lived and must stay outside the request timeout.
		apiRouter.Get("/stream", api.Stream)

		apiRouter.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(20 * time.Second))

			timed.Get("/snapshot", api.Snapshot)
			timed.Get("/aggregates", api.Aggregates)
			timed.Get("/attention", api.Attention)
			timed.Post("/refresh", api.Refresh)

			timed.Post("/devices", api.CreateDevice)
			timed.Get("/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.GetDevice(w, r, chi.URLParam(r, "id"))
			})
			timed.Patch("/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.PatchDevice(w, r, chi.URLParam(r, "id"))
			})
			timed.Delete("/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.DeleteDevice(w, r, chi.URLParam(r, "id"))
			})
			timed.Post("/devices/{id}/readings", func(w http.ResponseWriter, r *http.Request) {
				api.RecordReading(w, r, chi.URLParam(r, "id"))
			})
			timed.Post("/devices/{id}/alerts", func(w http.ResponseWriter, r *http.Request) {
				api.CreateAlert(w, r, chi.URLParam(r, "id"))
			})
			timed.Post("/alerts/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
				api.ResolveAlert(w, r, chi.URLParam(r, "id"))
			})
		})
	})

	r.Get("/*", api.Static)
	r.Get("/", api.Static)
	return r
}
