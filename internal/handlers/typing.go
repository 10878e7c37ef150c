package handlers

import (
	"net/http"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
)

// SetTypingRequest represents the typing update body.
type SetTypingRequest struct {
	UserKind  string  `json:"user_kind"`
	UserID    flexRef `json:"user_id"`
	OtherKind string  `json:"other_kind"`
	OtherID   flexRef `json:"other_id"`
	IsTyping  bool    `json:"is_typing"`
}

// TypingResponse reports a typing state.
type TypingResponse struct {
	IsTyping bool `json:"is_typing"`
}

// GetTyping handles GET /typing: is other typing to user right now?
func (h *Handler) GetTyping(w http.ResponseWriter, r *http.Request) {
	viewer, err := queryIdentity(r, "user")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	other, err := queryIdentity(r, "other")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	typing, err := h.svc.IsTyping(r.Context(), viewer, other)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, TypingResponse{IsTyping: typing})
}

// SetTyping handles POST /typing.
func (h *Handler) SetTyping(w http.ResponseWriter, r *http.Request) {
	var req SetTypingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	caller, err := messaging.ParseIdentity("user", req.UserKind, string(req.UserID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	other, err := messaging.ParseIdentity("other", req.OtherKind, string(req.OtherID))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.svc.SetTyping(r.Context(), caller, other, req.IsTyping); err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, TypingResponse{IsTyping: req.IsTyping})
}
