package handlers

import (
	"net/http"

	"privatetasks/internal/models"
)

// CreateTask stores the submitted text as the input buffer and adds it.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	h.session.SetInput(r.FormValue("label"))
	err := h.session.Add(r.Context())
	h.finish(w, r, err)
}

// ToggleTask flips the completion flag of a task.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	label, ok := parseLabel(w, r)
	if !ok {
		return
	}

	err := h.session.Toggle(r.Context(), label)
	h.finish(w, r, err)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	label, ok := parseLabel(w, r)
	if !ok {
		return
	}

	err := h.session.Delete(r.Context(), label)
	h.finish(w, r, err)
}

// parseLabel reads the task label from the form, answering 400 if it is
// missing.
func parseLabel(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return "", false
	}
	task := models.Task{Label: r.FormValue("label")}
	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return task.Label, true
}
