package messaging

import (
	"context"
	"time"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/metrics"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

// DefaultTypingWindow is how long a typing signal stays active without a refresh.
const DefaultTypingWindow = 5 * time.Second

// Presence tracks who is typing to whom. Stale signals are never swept;
// they are filtered out when read.
type Presence struct {
	store  store.TypingStore
	window time.Duration
	now    func() time.Time
}

// NewPresence creates a tracker; zero window and nil now take defaults.
func NewPresence(s store.TypingStore, window time.Duration, now func() time.Time) *Presence {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Presence{store: s, window: window, now: now}
}

// Window returns the freshness window.
func (p *Presence) Window() time.Duration {
	return p.window
}

// Set records whether from is typing to to.
func (p *Presence) Set(ctx context.Context, from, to models.ParticipantRef, isTyping bool) error {
	err := p.store.SetTyping(ctx, models.TypingSignal{
		From:      from,
		To:        to,
		IsTyping:  isTyping,
		UpdatedAt: p.now(),
	})
	if err != nil {
		return storageErr("set typing", err)
	}
	metrics.TypingUpdates.WithLabelValues(boolLabel(isTyping)).Inc()
	return nil
}

// IsTyping reports whether counterpart is currently typing to viewer.
func (p *Presence) IsTyping(ctx context.Context, viewer, counterpart models.ParticipantRef) (bool, error) {
	sig, err := p.store.GetTyping(ctx, counterpart, viewer)
	if err != nil {
		return false, storageErr("get typing", err)
	}
	if sig == nil {
		return false, nil
	}
	return sig.Active(p.now(), p.window), nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
