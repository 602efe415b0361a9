package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"pkt.systems/pslog"

	"privatetasks/internal/masq"
)

// maxReplyBytes bounds a pairing reply body.
const maxReplyBytes = 4 << 10

// PairingReply is the hub endpoint the pairing application answers on.
func (h *Handlers) PairingReply(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if channel == "" {
		respondError(w, http.StatusBadRequest, "missing channel")
		return
	}

	var reply masq.Reply
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReplyBytes)).Decode(&reply); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if reply.Channel == "" {
		reply.Channel = channel
	}
	if reply.Channel != channel {
		respondError(w, http.StatusBadRequest, "channel mismatch")
		return
	}

	logger := pslog.Ctx(r.Context()).With("channel", channel)
	err := h.hub.Deliver(reply)
	switch {
	case err == nil:
		logger.Info("pairing reply delivered", "accepted", reply.Accepted)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, masq.ErrUnknownChannel):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, masq.ErrBadSignature):
		logger.Warn("pairing reply refused", "err", err)
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, masq.ErrAlreadyAnswered):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondServerError(w, r, err)
	}
}
