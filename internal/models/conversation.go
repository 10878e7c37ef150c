package models

import "time"

// Conversation is the cached inbox row for a participant pair. It points at
// the latest message; the message log stays the source of truth.
type Conversation struct {
	ID            int64     `json:"id"`
	Pair          Pair      `json:"pair"`
	LastMessageID int64     `json:"last_message_id"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`

	// LastMessage is the content of the message LastMessageID points at.
	LastMessage string `json:"last_message,omitempty"`
}
