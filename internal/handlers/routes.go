package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"privatetasks/internal/httpserver"
	"privatetasks/internal/views"
)

// Routes wires every handler onto a chi router.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httpserver.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", views.Static()))

	// Page routes
	r.Get("/", h.Home)
	r.Get("/healthz", h.Healthz)

	// Session actions
	r.Post("/connect", h.Connect)
	r.Post("/logout", h.Logout)
	r.Post("/link", h.RequestLink)
	r.Post("/error/dismiss", h.DismissError)

	// Task actions
	r.Post("/tasks", h.CreateTask)
	r.Post("/tasks/toggle", h.ToggleTask)
	r.Post("/tasks/delete", h.DeleteTask)

	// JSON API
	r.Get("/api/session", h.Session)
	r.Get("/api/tasks", h.Tasks)

	// Hub endpoint for pairing replies
	r.Post("/pairing/{channel}", h.PairingReply)

	return r
}
