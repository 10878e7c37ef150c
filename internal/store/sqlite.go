package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/messaging.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/messaging.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		auth_uid TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		auth_uid TEXT,
		role TEXT NOT NULL DEFAULT 'agent',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_kind TEXT NOT NULL CHECK (sender_kind IN ('client', 'agent')),
		sender_id INTEGER NOT NULL,
		receiver_kind TEXT NOT NULL CHECK (receiver_kind IN ('client', 'agent')),
		receiver_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		subject TEXT,
		property_id INTEGER,
		appointment_id INTEGER,
		created_at DATETIME NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		read_at DATETIME,
		CHECK (sender_kind <> receiver_kind OR sender_id <> receiver_id)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_one_kind TEXT NOT NULL,
		participant_one_id INTEGER NOT NULL,
		participant_two_kind TEXT NOT NULL,
		participant_two_id INTEGER NOT NULL,
		last_message_id INTEGER NOT NULL REFERENCES messages(id),
		last_message_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (participant_one_kind, participant_one_id, participant_two_kind, participant_two_id)
	);

	CREATE TABLE IF NOT EXISTS typing_status (
		from_kind TEXT NOT NULL,
		from_id INTEGER NOT NULL,
		to_kind TEXT NOT NULL,
		to_id INTEGER NOT NULL,
		is_typing INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (from_kind, from_id, to_kind, to_id)
	);

	CREATE INDEX IF NOT EXISTS idx_clients_email ON clients(email COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_agents_email ON agents(email COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_messages_direction ON messages(sender_kind, sender_id, receiver_kind, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver_kind, receiver_id) WHERE is_read = 0;
	CREATE INDEX IF NOT EXISTS idx_conversations_one ON conversations(participant_one_kind, participant_one_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_two ON conversations(participant_two_kind, participant_two_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for seeding directory rows.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// ResolveParticipant finds a participant id by email or auth uid.
func (s *SQLiteStore) ResolveParticipant(ctx context.Context, kind models.Kind, key string) (int64, error) {
	table, err := directoryTable(kind)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM `+table+`
		WHERE email = ? COLLATE NOCASE OR auth_uid = ?
		ORDER BY id LIMIT 1
	`, key, key).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// GetParticipant retrieves display info for a participant.
func (s *SQLiteStore) GetParticipant(ctx context.Context, ref models.ParticipantRef) (*models.Participant, error) {
	p := &models.Participant{Ref: ref}

	var err error
	switch ref.Kind {
	case models.KindClient:
		var first, last string
		err = s.db.QueryRowContext(ctx, `
			SELECT first_name, last_name, email FROM clients WHERE id = ?
		`, ref.ID).Scan(&first, &last, &p.Email)
		p.Name = clientName(first, last)
		p.Role = string(models.KindClient)
	case models.KindAgent:
		err = s.db.QueryRowContext(ctx, `
			SELECT name, email, role FROM agents WHERE id = ?
		`, ref.ID).Scan(&p.Name, &p.Email, &p.Role)
	default:
		_, err = directoryTable(ref.Kind)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// InsertMessage appends a message and fills in its ID.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_kind, sender_id, receiver_kind, receiver_id,
			content, subject, property_id, appointment_id, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, string(msg.Sender.Kind), msg.Sender.ID, string(msg.Receiver.Kind), msg.Receiver.ID,
		msg.Content, msg.Subject, msg.PropertyID, msg.AppointmentID, msg.CreatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	msg.IsRead = false
	msg.ReadAt = nil
	return nil
}

// ListMessagesBetween returns the full history between a and b, oldest first.
func (s *SQLiteStore) ListMessagesBetween(ctx context.Context, a, b models.ParticipantRef) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_kind = ? AND sender_id = ? AND receiver_kind = ? AND receiver_id = ?)
		   OR (sender_kind = ? AND sender_id = ? AND receiver_kind = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, string(a.Kind), a.ID, string(b.Kind), b.ID, string(b.Kind), b.ID, string(a.Kind), a.ID)
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
func (s *SQLiteStore) LatestMessageBetween(ctx context.Context, a, b models.ParticipantRef) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_kind = ? AND sender_id = ? AND receiver_kind = ? AND receiver_id = ?)
		   OR (sender_kind = ? AND sender_id = ? AND receiver_kind = ? AND receiver_id = ?)
		ORDER BY id DESC LIMIT 1
	`, string(a.Kind), a.ID, string(b.Kind), b.ID, string(b.Kind), b.ID, string(a.Kind), a.ID)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// UpsertConversation inserts the pair's row or moves its pointer forward.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, pair models.Pair, messageID int64, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (participant_one_kind, participant_one_id,
			participant_two_kind, participant_two_id, last_message_id, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (participant_one_kind, participant_one_id, participant_two_kind, participant_two_id)
		DO UPDATE SET last_message_id = excluded.last_message_id,
			last_message_at = excluded.last_message_at
		WHERE excluded.last_message_id > conversations.last_message_id
	`, string(pair.First.Kind), pair.First.ID, string(pair.Second.Kind), pair.Second.ID, messageID, at, at)
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.id = ?
	`, id)
	return sqliteConversation(row)
}

// GetConversationByPair retrieves the conversation for a canonical pair.
func (s *SQLiteStore) GetConversationByPair(ctx context.Context, pair models.Pair) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.participant_one_kind = ? AND c.participant_one_id = ?
		  AND c.participant_two_kind = ? AND c.participant_two_id = ?
	`, string(pair.First.Kind), pair.First.ID, string(pair.Second.Kind), pair.Second.ID)
	return sqliteConversation(row)
}

func sqliteConversation(row *sql.Row) (*models.Conversation, error) {
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns every conversation ref takes part in, newest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, ref models.ParticipantRef) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE (c.participant_one_kind = ? AND c.participant_one_id = ?)
		   OR (c.participant_two_kind = ? AND c.participant_two_id = ?)
		ORDER BY c.last_message_at DESC, c.id DESC
	`, string(ref.Kind), ref.ID, string(ref.Kind), ref.ID)
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
func (s *SQLiteStore) MarkRead(ctx context.Context, viewer, counterpart models.ParticipantRef, throughID int64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1, read_at = ?
		WHERE receiver_kind = ? AND receiver_id = ?
		  AND sender_kind = ? AND sender_id = ?
		  AND is_read = 0 AND id <= ?
	`, at.UTC(), string(viewer.Kind), viewer.ID, string(counterpart.Kind), counterpart.ID, throughID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnread returns the number of unread messages addressed to viewer.
func (s *SQLiteStore) CountUnread(ctx context.Context, viewer models.ParticipantRef) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_kind = ? AND receiver_id = ? AND is_read = 0
	`, string(viewer.Kind), viewer.ID).Scan(&count)
	return count, err
}

// CountUnreadFrom returns the number of unread messages from counterpart to viewer.
func (s *SQLiteStore) CountUnreadFrom(ctx context.Context, viewer, counterpart models.ParticipantRef) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_kind = ? AND receiver_id = ?
		  AND sender_kind = ? AND sender_id = ?
		  AND is_read = 0
	`, string(viewer.Kind), viewer.ID, string(counterpart.Kind), counterpart.ID).Scan(&count)
	return count, err
}

// SetTyping upserts the directed typing row.
func (s *SQLiteStore) SetTyping(ctx context.Context, sig models.TypingSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO typing_status (from_kind, from_id, to_kind, to_id, is_typing, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_kind, from_id, to_kind, to_id)
		DO UPDATE SET is_typing = excluded.is_typing, updated_at = excluded.updated_at
	`, string(sig.From.Kind), sig.From.ID, string(sig.To.Kind), sig.To.ID, sig.IsTyping, sig.UpdatedAt.UTC())
	return err
}

// GetTyping retrieves the directed typing row.
func (s *SQLiteStore) GetTyping(ctx context.Context, from, to models.ParticipantRef) (*models.TypingSignal, error) {
	sig := &models.TypingSignal{From: from, To: to}
	err := s.db.QueryRowContext(ctx, `
		SELECT is_typing, updated_at FROM typing_status
		WHERE from_kind = ? AND from_id = ? AND to_kind = ? AND to_id = ?
	`, string(from.Kind), from.ID, string(to.Kind), to.ID).Scan(&sig.IsTyping, &sig.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sig, nil
}
