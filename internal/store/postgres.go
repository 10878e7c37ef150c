package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.HealthCheckPeriod == 0 {
		cfg.HealthCheckPeriod = time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ResolveParticipant finds a participant id by email or auth uid.
func (s *PostgresStore) ResolveParticipant(ctx context.Context, kind models.Kind, key string) (int64, error) {
	table, err := directoryTable(kind)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM `+table+`
		WHERE lower(email) = lower($1) OR auth_uid = $1
		ORDER BY id LIMIT 1
	`, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// GetParticipant retrieves display info for a participant.
func (s *PostgresStore) GetParticipant(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error) {
	p := &models.Participant{Ref: ref}

	var err error
	switch ref.Kind {
	case models.KindClient:
		var first, last string
		err = s.pool.QueryRow(ctx, `
			SELECT first_name, last_name, email FROM clients WHERE id = $1
		`, ref.ID).Scan(&first, &last, &p.Email)
		p.Name = clientName(first, last)
		p.Role = string(models.KindClient)
	case models.KindAgent:
		err = s.pool.QueryRow(ctx, `
			SELECT name, email, role FROM agents WHERE id = $1
		`, ref.ID).Scan(&p.Name, &p.Email, &p.Role)
	default:
		_, err = directoryTable(ref.Kind)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// InsertMessage appends a message and fills in its ID.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_kind, sender_id, receiver_kind, receiver_id,
			content, subject, property_id, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, string(msg.Sender.Kind), msg.Sender.ID, string(msg.Receiver.Kind), msg.Receiver.ID,
		msg.Content, msg.Subject, msg.PropertyID, msg.AppointmentID, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return err
	}
	msg.IsRead = false
	msg.ReadAt = nil
	return nil
}

// ListMessagesBetween returns the full history between a and b, oldest first.
func (s *PostgresStore) ListMessagesBetween(ctx context.Context, a, b models.ParticipantRef) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_kind = $1 AND sender_id = $2 AND receiver_kind = $3 AND receiver_id = $4)
		   OR (sender_kind = $3 AND sender_id = $4 AND receiver_kind = $1 AND receiver_id = $2)
		ORDER BY created_at ASC, id ASC
	`, string(a.Kind), a.ID, string(b.Kind), b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LatestMessageBetween returns the newest message between a and b, or nil.
func (s *PostgresStore) LatestMessageBetween(ctx context.Context, a, b models.ParticipantRef) (*models.Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_kind = $1 AND sender_id = $2 AND receiver_kind = $3 AND receiver_id = $4)
		   OR (sender_kind = $3 AND sender_id = $4 AND receiver_kind = $1 AND receiver_id = $2)
		ORDER BY id DESC LIMIT 1
	`, string(a.Kind), a.ID, string(b.Kind), b.ID)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// UpsertConversation inserts the pair's row or moves its pointer forward.
func (s *PostgresStore) UpsertConversation(ctx context.Context, pair models.Pair, messageID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (participant_one_kind, participant_one_id,
			participant_two_kind, participant_two_id, last_message_id, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (participant_one_kind, participant_one_id, participant_two_kind, participant_two_id)
		DO UPDATE SET last_message_id = EXCLUDED.last_message_id,
		              last_message_at = EXCLUDED.last_message_at
		WHERE conversations.last_message_id < EXCLUDED.last_message_id
	`, string(pair.First.Kind), pair.First.ID, string(pair.Second.Kind), pair.Second.ID, messageID, at.UTC())
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.id = $1
	`, id)
	return pgConversation(row)
}

// GetConversationByPair retrieves the conversation for a canonical pair.
func (s *PostgresStore) GetConversationByPair(ctx context.Context, pair models.Pair) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.participant_one_kind = $1 AND c.participant_one_id = $2
		  AND c.participant_two_kind = $3 AND c.participant_two_id = $4
	`, string(pair.First.Kind), pair.First.ID, string(pair.Second.Kind), pair.Second.ID)
	return pgConversation(row)
}

func pgConversation(row pgx.Row) (*models.Conversation, error) {
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns every conversation ref takes part in, newest first.
func (s *PostgresStore) ListConversations(ctx context.Context, ref models.ParticipantRef) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE (c.participant_one_kind = $1 AND c.participant_one_id = $2)
		   OR (c.participant_two_kind = $1 AND c.participant_two_id = $2)
		ORDER BY c.last_message_at DESC, c.id DESC
	`, string(ref.Kind), ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// MarkRead flags unread messages from counterpart to viewer, up to throughID.
func (s *PostgresStore) MarkRead(ctx context.Context, viewer, counterpart models.ParticipantRef, throughID int64, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $6
		WHERE receiver_kind = $1 AND receiver_id = $2
		  AND sender_kind = $3 AND sender_id = $4
		  AND is_read = FALSE AND id <= $5
	`, string(viewer.Kind), viewer.ID, string(counterpart.Kind), counterpart.ID, throughID, at.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountUnread returns the number of unread messages addressed to viewer.
func (s *PostgresStore) CountUnread(ctx context.Context, viewer models.ParticipantRef) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_kind = $1 AND receiver_id = $2 AND is_read = FALSE
	`, string(viewer.Kind), viewer.ID).Scan(&count)
	return count, err
}

// CountUnreadFrom returns the number of unread messages from counterpart to viewer.
func (s *PostgresStore) CountUnreadFrom(ctx context.Context, viewer, counterpart models.ParticipantRef) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_kind = $1 AND receiver_id = $2
		  AND sender_kind = $3 AND sender_id = $4
		  AND is_read = FALSE
	`, string(viewer.Kind), viewer.ID, string(counterpart.Kind), counterpart.ID).Scan(&count)
	return count, err
}

// SetTyping upserts the directed typing row.
func (s *PostgresStore) SetTyping(ctx context.Context, sig models.TypingSignal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO typing_status (from_kind, from_id, to_kind, to_id, is_typing, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (from_kind, from_id, to_kind, to_id)
		DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = EXCLUDED.updated_at
	`, string(sig.From.Kind), sig.From.ID, string(sig.To.Kind), sig.To.ID, sig.IsTyping, sig.UpdatedAt.UTC())
	return err
}

// GetTyping retrieves the directed typing row.
func (s *PostgresStore) GetTyping(ctx context.Context, from, to models.ParticipantRef) (*models.TypingSignal, error) {
	sig := &models.TypingSignal{From: from, To: to}
	err := s.pool.QueryRow(ctx, `
		SELECT is_typing, updated_at FROM typing_status
		WHERE from_kind = $1 AND from_id = $2 AND to_kind = $3 AND to_id = $4
	`, string(from.Kind), from.ID, string(to.Kind), to.ID).Scan(&sig.IsTyping, &sig.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sig, nil
}
