package handlers

import (
	"net/http"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
)

// ConversationListResponse represents the inbox response.
type ConversationListResponse struct {
	Conversations []messaging.ConversationSummary `json:"conversations"`
}

// ListConversations handles GET /conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, err := queryIdentity(r, "user")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	convs, err := h.svc.ListConversations(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, ConversationListResponse{Conversations: convs})
}
