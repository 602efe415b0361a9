package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"pkt.systems/pslog"

	"privatetasks/internal/masq"
	"privatetasks/internal/session"
	"privatetasks/internal/views"
)

// PairingHub accepts pairing replies posted by the pairing application.
type PairingHub interface {
	Deliver(reply masq.Reply) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	session   *session.Controller
	hub       PairingHub
	templates *template.Template
	appName   string
}

// New creates a new Handlers instance.
func New(ctrl *session.Controller, hub PairingHub, tmpl *template.Template, appName string) *Handlers {
	return &Handlers{
		session:   ctrl,
		hub:       hub,
		templates: tmpl,
		appName:   appName,
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func respondServerError(w http.ResponseWriter, r *http.Request, err error) {
	pslog.Ctx(r.Context()).Error("internal server error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if h.templates == nil {
		// For testing without templates
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		respondServerError(w, r, err)
	}
}

// Home renders the root view from the current session state.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, views.RootTemplate, views.NewRootData(h.appName, h.session.State()))
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
