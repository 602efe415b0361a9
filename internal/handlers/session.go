package handlers

import (
	"errors"
	"net/http"

	"privatetasks/internal/models"
	"privatetasks/internal/session"
)

// SessionView is the JSON form of the session state.
type SessionView struct {
	Phase      string         `json:"phase"`
	Link       string         `json:"link,omitempty"`
	Username   string         `json:"username,omitempty"`
	Connecting bool           `json:"connecting"`
	Input      string         `json:"input,omitempty"`
	Error      string         `json:"error,omitempty"`
	Tasks      models.TaskMap `json:"tasks"`
}

func newSessionView(st session.State) SessionView {
	return SessionView{
		Phase:      st.Phase.Name(),
		Link:       st.Link(),
		Username:   st.Username(),
		Connecting: st.Connecting,
		Input:      st.Input,
		Error:      st.Err,
		Tasks:      st.Tasks,
	}
}

// statusFor maps a controller error to the status a JSON client sees.
// Failures of the sync client are already visible in the session state.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, session.ErrNotAwaitingPairing),
		errors.Is(err, session.ErrPairingInProgress):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// finish answers a user action: JSON clients get the new state and a status
// reflecting err, browsers are sent back to the root view.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		respondJSON(w, statusFor(err), newSessionView(h.session.State()))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Session returns the session state as JSON.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newSessionView(h.session.State()))
}

// Tasks returns the task mapping as JSON.
func (h *Handlers) Tasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.State().Tasks)
}

// Connect completes pairing with the current link.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	stayConnected := r.FormValue("stay_connected") == "true"

	err := h.session.Connect(r.Context(), stayConnected)
	h.finish(w, r, err)
}

// Logout signs out and returns to the pairing phase.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.session.Logout(r.Context())
	h.finish(w, r, err)
}

// RequestLink asks for a new pairing link.
func (h *Handlers) RequestLink(w http.ResponseWriter, r *http.Request) {
	err := h.session.RequestLink(r.Context())
	h.finish(w, r, err)
}

// DismissError clears the visible error.
func (h *Handlers) DismissError(w http.ResponseWriter, r *http.Request) {
	h.session.DismissError()
	h.finish(w, r, nil)
}
