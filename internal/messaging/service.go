// Package messaging implements the client/agent message log, the per-pair
// conversation index, read tracking and typing presence on top of the
// storage interfaces in internal/store.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/metrics"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/queue"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

const (
	// MaxContentLength is the maximum message length in characters.
	MaxContentLength = 5000
	// MaxSubjectLength is the maximum subject length in characters.
	MaxSubjectLength = 255
)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTypingWindow overrides DefaultTypingWindow.
func WithTypingWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithQueue enables background repair of the conversation index.
func WithQueue(q queue.Client) Option {
	return func(s *Service) {
		s.queue = q
	}
}

// Service is the transport-agnostic messaging API.
type Service struct {
	store    store.DataStore
	resolver *Resolver
	reads    *ReadTracker
	presence *Presence
	queue    queue.Client
	logger   zerolog.Logger
	now      func() time.Time
	window   time.Duration
}

// NewService wires the service. typing may be nil, in which case typing
// signals are kept in ds.
func NewService(ds store.DataStore, typing store.TypingStore, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  ds,
		logger: logger,
		now:    time.Now,
		window: DefaultTypingWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if typing == nil {
		typing = ds
	}

	s.resolver = NewResolver(ds)
	s.reads = NewReadTracker(ds, s.now)
	s.presence = NewPresence(typing, s.window, s.now)
	return s
}

// SendInput is a message as submitted by a caller.
type SendInput struct {
	Sender        Identity
	Receiver      Identity
	Content       string
	Subject       *string
	PropertyID    *int64
	AppointmentID *int64
}

// SentMessage is the stored message plus the sender's display name.
type SentMessage struct {
	models.Message
	SenderName string `json:"sender_name"`
}

// SendMessage validates, resolves and appends a message, then moves the
// pair's conversation pointer. A failed pointer update does not fail the send.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (*SentMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("content", "is required")
	}
	if !utf8.ValidString(content) {
		return nil, invalid("content", "must be valid UTF-8")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", MaxContentLength))
	}

	var subject *string
	if in.Subject != nil {
		if sub := strings.TrimSpace(*in.Subject); sub != "" {
			if !utf8.ValidString(sub) {
				return nil, invalid("subject", "must be valid UTF-8")
			}
			if utf8.RuneCountInString(sub) > MaxSubjectLength {
				return nil, invalid("subject", fmt.Sprintf("must be at most %d characters", MaxSubjectLength))
			}
			subject = &sub
		}
	}
	if in.PropertyID != nil && *in.PropertyID <= 0 {
		return nil, invalid("property_id", "must be positive")
	}
	if in.AppointmentID != nil && *in.AppointmentID <= 0 {
		return nil, invalid("appointment_id", "must be positive")
	}

	sender, err := s.resolver.Resolve(ctx, "sender", in.Sender)
	if err != nil {
		return nil, err
	}
	receiver, err := s.resolver.Resolve(ctx, "receiver", in.Receiver)
	if err != nil {
		return nil, err
	}
	if sender == receiver {
		return nil, invalid("receiver_id", "cannot be the sender")
	}

	msg := models.Message{
		Sender:        sender,
		Receiver:      receiver,
		Content:       content,
		Subject:       subject,
		PropertyID:    in.PropertyID,
		AppointmentID: in.AppointmentID,
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertMessage(ctx, &msg); err != nil {
		return nil, storageErr("insert message", err)
	}
	metrics.MessagesSent.WithLabelValues(string(sender.Kind)).Inc()

	s.indexMessage(ctx, msg)

	// The message is stored; a directory fault only costs the display name.
	from, err := s.participant(ctx, sender)
	if err != nil {
		s.logger.Warn().Err(err).Str("participant", sender.String()).Msg("directory lookup failed")
		from = unknownParticipant(sender)
	}

	return &SentMessage{
		Message:    msg,
		SenderName: from.Name,
	}, nil
}

func (s *Service) indexMessage(ctx context.Context, msg models.Message) {
	pair := models.NewPair(msg.Sender, msg.Receiver)
	err := s.store.UpsertConversation(ctx, pair, msg.ID, msg.CreatedAt)
	if err == nil {
		return
	}

	metrics.ConversationIndexFailures.Inc()
	s.logger.Warn().
		Err(err).
		Int64("message_id", msg.ID).
		Str("participant_one", pair.First.String()).
		Str("participant_two", pair.Second.String()).
		Msg("conversation index update failed")
	s.enqueueRefresh(ctx, pair)
}

// participant returns directory info for ref. A numeric reference with no
// directory row gets a generic name; a failing lookup is a storage error.
func (s *Service) participant(ctx context.Context, ref models.ParticipantRef) (models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, ref)
	if err != nil {
		return models.Participant{}, storageErr("get participant", err)
	}
	if p == nil {
		return unknownParticipant(ref), nil
	}
	if p.Name == "" {
		p.Name = unknownName(ref.Kind)
	}
	return *p, nil
}

func unknownParticipant(ref models.ParticipantRef) models.Participant {
	return models.Participant{Ref: ref, Name: unknownName(ref.Kind), Role: string(ref.Kind)}
}

func unknownName(kind models.Kind) string {
	return "Unknown " + string(kind)
}

// ConversationSummary is one inbox row as seen by a participant.
type ConversationSummary struct {
	models.Conversation
	OtherParticipant models.Participant `json:"other_participant"`
	UnreadCount      int64              `json:"unread_count"`
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, caller Identity) ([]ConversationSummary, error) {
	ref, err := s.resolver.Resolve(ctx, "caller", caller)
	if err != nil {
		return nil, err
	}

	convs, err := s.store.ListConversations(ctx, ref)
	if err != nil {
		return nil, storageErr("list conversations", err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		other, ok := c.Pair.Other(ref)
		if !ok {
			continue
		}
		unread, err := s.reads.UnreadFrom(ctx, ref, other)
		if err != nil {
			return nil, err
		}
		contact, err := s.participant(ctx, other)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConversationSummary{
			Conversation:     c,
			OtherParticipant: contact,
			UnreadCount:      unread,
		})
	}
	return summaries, nil
}

// ListMessagesInput selects a thread either by conversation id or by the
// caller and counterpart. Caller is optional with a conversation id; without
// it nothing is marked read.
type ListMessagesInput struct {
	ConversationID int64
	Caller         *Identity
	Counterpart    *Identity
}

// ListMessages returns a thread oldest first and marks the counterpart's
// messages in it as read for the caller.
func (s *Service) ListMessages(ctx context.Context, in ListMessagesInput) ([]models.Message, error) {
	var (
		a, b   models.ParticipantRef
		viewer bool
	)

	switch {
	case in.ConversationID > 0:
		conv, err := s.store.GetConversation(ctx, in.ConversationID)
		if err != nil {
			return nil, storageErr("get conversation", err)
		}
		if conv == nil {
			return nil, fmt.Errorf("%w: %d", ErrConversationNotFound, in.ConversationID)
		}
		a, b = conv.Pair.First, conv.Pair.Second
		if in.Caller != nil {
			ref, err := s.resolver.Resolve(ctx, "caller", *in.Caller)
			if err != nil {
				return nil, err
			}
			other, ok := conv.Pair.Other(ref)
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrConversationNotFound, in.ConversationID)
			}
			a, b, viewer = ref, other, true
		}

	case in.ConversationID < 0:
		return nil, invalid("conversation_id", "must be positive")

	default:
		if in.Caller == nil || in.Counterpart == nil {
			return nil, invalid("conversation_id", "or both participants are required")
		}
		var err error
		if a, err = s.resolver.Resolve(ctx, "caller", *in.Caller); err != nil {
			return nil, err
		}
		if b, err = s.resolver.Resolve(ctx, "counterpart", *in.Counterpart); err != nil {
			return nil, err
		}
		if a == b {
			return nil, invalid("other_id", "cannot be the caller")
		}
		viewer = true
	}

	msgs, err := s.store.ListMessagesBetween(ctx, a, b)
	if err != nil {
		return nil, storageErr("list messages", err)
	}

	if viewer {
		s.markFetched(ctx, a, b, msgs)
	}
	return msgs, nil
}

// markFetched marks read only what the viewer was actually shown, so a
// message stored after the fetch stays unread. Failures are logged; the
// thread is still returned.
func (s *Service) markFetched(ctx context.Context, viewer, counterpart models.ParticipantRef, msgs []models.Message) {
	var through int64
	for _, m := range msgs {
		if m.Sender == counterpart && !m.IsRead && m.ID > through {
			through = m.ID
		}
	}
	if through == 0 {
		return
	}
	if _, err := s.reads.MarkReadThrough(ctx, viewer, counterpart, through); err != nil {
		metrics.MarkReadFailures.Inc()
		s.logger.Warn().
			Err(err).
			Str("viewer", viewer.String()).
			Str("counterpart", counterpart.String()).
			Msg("mark read failed")
	}
}

// UnreadCount returns the number of unread messages addressed to caller.
func (s *Service) UnreadCount(ctx context.Context, caller Identity) (int64, error) {
	ref, err := s.resolver.Resolve(ctx, "caller", caller)
	if err != nil {
		return 0, err
	}
	return s.reads.UnreadCount(ctx, ref)
}

// IsTyping reports whether counterpart is currently typing to viewer.
func (s *Service) IsTyping(ctx context.Context, viewer, counterpart Identity) (bool, error) {
	v, err := s.resolver.Resolve(ctx, "caller", viewer)
	if err != nil {
		return false, err
	}
	c, err := s.resolver.Resolve(ctx, "counterpart", counterpart)
	if err != nil {
		return false, err
	}
	return s.presence.IsTyping(ctx, v, c)
}

// SetTyping records whether caller is typing to counterpart.
func (s *Service) SetTyping(ctx context.Context, caller, counterpart Identity, isTyping bool) error {
	from, err := s.resolver.Resolve(ctx, "caller", caller)
	if err != nil {
		return err
	}
	to, err := s.resolver.Resolve(ctx, "counterpart", counterpart)
	if err != nil {
		return err
	}
	if from == to {
		return invalid("other_id", "cannot be the caller")
	}
	return s.presence.Set(ctx, from, to, isTyping)
}

// TypingWindow returns the presence freshness window in effect.
func (s *Service) TypingWindow() time.Duration {
	return s.presence.Window()
}

// RefreshConversation recomputes the pair's pointer from the message log.
// The upsert never moves a pointer backwards, so running it twice is safe.
func (s *Service) RefreshConversation(ctx context.Context, pair models.Pair) error {
	latest, err := s.store.LatestMessageBetween(ctx, pair.First, pair.Second)
	if err != nil {
		return storageErr("latest message", err)
	}
	if latest == nil {
		return nil
	}
	if err := s.store.UpsertConversation(ctx, pair, latest.ID, latest.CreatedAt); err != nil {
		return storageErr("upsert conversation", err)
	}
	return nil
}
