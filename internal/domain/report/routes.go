package report

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alertavecinal/alerta-api/internal/middleware"
)

// Routes returns user-facing report routes
func Routes(h *Handler, live *LiveHandler, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/mine", h.Mine)
	r.Get("/live", live.Serve)
	r.Get("/{id}", h.GetByID)
	r.Delete("/{id}", h.Delete)

	return r
}

// ModerationRoutes returns routes restricted to moderators and admins
func ModerationRoutes(h *Handler, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(middleware.RequireModerator())

	r.Get("/queue", h.Queue)
	r.Get("/stats", h.Stats)

	r.Route("/reports/{id}", func(r chi.Router) {
		r.Post("/approve", h.Approve)
		r.Post("/reject", h.Reject)
		r.Patch("/", h.Edit)
		r.Post("/request-info", h.RequestInfo)
		r.Get("/history", h.History)
	})

	return r
}

// AdminRoutes returns admin-only maintenance routes
func AdminRoutes(h *Handler, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)
	r.Use(middleware.RequireAdmin())

	r.Post("/reports/refresh", h.Refresh)

	return r
}
