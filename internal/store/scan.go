package store

import (
	"fmt"
	"strings"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const messageColumns = `id, sender_kind, sender_id, receiver_kind, receiver_id,
	content, subject, property_id, appointment_id, created_at, is_read, read_at`

const conversationColumns = `c.id, c.participant_one_kind, c.participant_one_id,
	c.participant_two_kind, c.participant_two_id, c.last_message_id, c.last_message_at,
	c.created_at, COALESCE(m.content, '')`

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		msg          models.Message
		senderKind   string
		receiverKind string
	)
	err := row.Scan(
		&msg.ID,
		&senderKind,
		&msg.Sender.ID,
		&receiverKind,
		&msg.Receiver.ID,
		&msg.Content,
		&msg.Subject,
		&msg.PropertyID,
		&msg.AppointmentID,
		&msg.CreatedAt,
		&msg.IsRead,
		&msg.ReadAt,
	)
	if err != nil {
		return msg, err
	}
	msg.Sender.Kind = models.Kind(senderKind)
	msg.Receiver.Kind = models.Kind(receiverKind)
	return msg, nil
}

func scanConversation(row rowScanner) (models.Conversation, error) {
	var (
		conv    models.Conversation
		oneKind string
		twoKind string
	)
	err := row.Scan(
		&conv.ID,
		&oneKind,
		&conv.Pair.First.ID,
		&twoKind,
		&conv.Pair.Second.ID,
		&conv.LastMessageID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.LastMessage,
	)
	if err != nil {
		return conv, err
	}
	conv.Pair.First.Kind = models.Kind(oneKind)
	conv.Pair.Second.Kind = models.Kind(twoKind)
	return conv, nil
}

// directoryTable maps a kind onto its table. Kinds are a closed set, so the
// result is safe to splice into SQL.
func directoryTable(kind models.Kind) (string, error) {
	switch kind {
	case models.KindClient:
		return "clients", nil
	case models.KindAgent:
		return "agents", nil
	default:
		return "", fmt.Errorf("unknown participant kind %q", kind)
	}
}

func clientName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
