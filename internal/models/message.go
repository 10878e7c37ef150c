package models

import "time"

// Message is one entry in the message log between two participants.
// Only IsRead and ReadAt change after creation.
type Message struct {
	ID            int64          `json:"id"`
	Sender        ParticipantRef `json:"sender"`
	Receiver      ParticipantRef `json:"receiver"`
	Content       string         `json:"content"`
	Subject       *string        `json:"subject,omitempty"`
	PropertyID    *int64         `json:"property_id,omitempty"`
	AppointmentID *int64         `json:"appointment_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	IsRead        bool           `json:"is_read"`
	ReadAt        *time.Time     `json:"read_at,omitempty"`
}
