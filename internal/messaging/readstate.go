package messaging

import (
	"context"
	"math"
	"time"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/metrics"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

// ReadTracker owns message read flags and unread counts.
type ReadTracker struct {
	store store.ReadStateStore
	now   func() time.Time
}

// NewReadTracker creates a tracker; now defaults to time.Now.
func NewReadTracker(s store.ReadStateStore, now func() time.Time) *ReadTracker {
	if now == nil {
		now = time.Now
	}
	return &ReadTracker{store: s, now: now}
}

// MarkRead marks every unread message from counterpart to viewer as read.
func (t *ReadTracker) MarkRead(ctx context.Context, viewer, counterpart models.ParticipantRef) (int64, error) {
	return t.MarkReadThrough(ctx, viewer, counterpart, math.MaxInt64)
}

// MarkReadThrough only touches messages with an id up to throughID, so a
// message that arrived after the viewer's fetch stays unread.
func (t *ReadTracker) MarkReadThrough(ctx context.Context, viewer, counterpart models.ParticipantRef, throughID int64) (int64, error) {
	n, err := t.store.MarkRead(ctx, viewer, counterpart, throughID, t.now())
	if err != nil {
		return 0, storageErr("mark read", err)
	}
	if n > 0 {
		metrics.MessagesRead.Add(float64(n))
	}
	return n, nil
}

// UnreadCount is the viewer's global inbox badge.
func (t *ReadTracker) UnreadCount(ctx context.Context, viewer models.ParticipantRef) (int64, error) {
	n, err := t.store.CountUnread(ctx, viewer)
	if err != nil {
		return 0, storageErr("count unread", err)
	}
	return n, nil
}

// UnreadFrom counts unread messages in a single conversation.
func (t *ReadTracker) UnreadFrom(ctx context.Context, viewer, counterpart models.ParticipantRef) (int64, error) {
	n, err := t.store.CountUnreadFrom(ctx, viewer, counterpart)
	if err != nil {
		return 0, storageErr("count unread", err)
	}
	return n, nil
}
