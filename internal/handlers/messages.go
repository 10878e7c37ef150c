package handlers

import (
	"net/http"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	SenderKind    string  `json:"sender_kind"`
	SenderID      flexRef `json:"sender_id"`
	ReceiverKind  string  `json:"receiver_kind"`
	ReceiverID    flexRef `json:"receiver_id"`
	Content       string  `json:"content"`
	Subject       *string `json:"subject"`
	PropertyID    *int64  `json:"property_id"`
	AppointmentID *int64  `json:"appointment_id"`
}

// MessageListResponse represents the message list response.
type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
}

// UnreadCountResponse represents the unread badge response.
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// SendMessage handles POST /messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	sender, err := messaging.ParseIdentity("sender", req.SenderKind, string(req.SenderID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receiver, err := messaging.ParseIdentity("receiver", req.ReceiverKind, string(req.ReceiverID))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), messaging.SendInput{
		Sender:        sender,
		Receiver:      receiver,
		Content:       req.Content,
		Subject:       req.Subject,
		PropertyID:    req.PropertyID,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /messages, either by conversation_id (with an
// optional user_kind/user_id caller) or by user_* and other_* participants.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	var in messaging.ListMessagesInput

	if raw := r.URL.Query().Get("conversation_id"); raw != "" {
		id, err := parsePositiveInt(raw, "conversation_id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.ConversationID = id
	}

	if in.ConversationID == 0 || hasQueryIdentity(r, "user") {
		caller, err := queryIdentity(r, "user")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Caller = &caller
	}

	if in.ConversationID == 0 {
		other, err := queryIdentity(r, "other")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Counterpart = &other
	}

	msgs, err := h.svc.ListMessages(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{Messages: msgs})
}

// UnreadCount handles GET /messages/unread.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	caller, err := queryIdentity(r, "user")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	n, err := h.svc.UnreadCount(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: n})
}
