package models

import "time"

// TypingSignal records whether From is typing to To. Direction matters.
type TypingSignal struct {
	From      ParticipantRef `json:"from"`
	To        ParticipantRef `json:"to"`
	IsTyping  bool           `json:"is_typing"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Active reports whether the signal is set and no older than window at now.
func (s TypingSignal) Active(now time.Time, window time.Duration) bool {
	if !s.IsTyping {
		return false
	}
	return now.Sub(s.UpdatedAt) <= window
}
