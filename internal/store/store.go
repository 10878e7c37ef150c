package store

import (
	"context"
	"time"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// Directory is the read-only view of the clients and agents tables.
type Directory interface {
	// ResolveParticipant looks up a participant id by email or auth uid.
	// It returns 0 and a nil error when nothing matches.
	ResolveParticipant(ctx context.Context, kind models.Kind, key string) (int64, error)
	// GetParticipant returns nil and a nil error when the row does not exist.
	GetParticipant(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error)
}

// MessageStore is the append-only message log.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessagesBetween(ctx context.Context, a, b models.ParticipantRef) ([]models.Message, error)
	LatestMessageBetween(ctx context.Context, a, b models.ParticipantRef) (*models.Message, error)
}

// ConversationIndex caches one row per canonical participant pair.
type ConversationIndex interface {
	UpsertConversation(ctx context.Context, pair models.Pair, messageID int64, at time.Time) error
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	GetConversationByPair(ctx context.Context, pair models.Pair) (*models.Conversation, error)
	ListConversations(ctx context.Context, ref models.ParticipantRef) ([]models.Conversation, error)
}

// ReadStateStore mutates and counts message read flags.
type ReadStateStore interface {
	// MarkRead flags unread messages from counterpart to viewer with an id
	// no greater than throughID.
	MarkRead(ctx context.Context, viewer, counterpart models.ParticipantRef, throughID int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, viewer models.ParticipantRef) (int64, error)
	CountUnreadFrom(ctx context.Context, viewer, counterpart models.ParticipantRef) (int64, error)
}

// TypingStore keeps one typing signal per directed pair.
// Both RedisStore and the relational stores implement it.
type TypingStore interface {
	SetTyping(ctx context.Context, sig models.TypingSignal) error
	// GetTyping returns nil and a nil error when no signal was ever written.
	GetTyping(ctx context.Context, from, to models.ParticipantRef) (*models.TypingSignal, error)
}

// DataStore defines the interface for persistent storage of the messaging
// subsystem. Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	Directory
	MessageStore
	ConversationIndex
	ReadStateStore
	TypingStore
}
