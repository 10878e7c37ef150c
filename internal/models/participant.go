package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which directory table a participant lives in.
type Kind string

const (
	KindAgent  Kind = "agent"
	KindClient Kind = "client"
)

var (
	ErrInvalidKind      = errors.New("kind must be client or agent")
	ErrInvalidReference = errors.New("reference must be a positive id, an email or an auth uid")
)

// ParseKind normalizes a caller-supplied kind. Admins are stored in the
// agents table, so "admin" maps to KindAgent.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return KindClient, nil
	case "agent", "admin":
		return KindAgent, nil
	default:
		return "", ErrInvalidKind
	}
}

// ParticipantRef is a resolved participant: a kind plus its canonical id.
type ParticipantRef struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func (r ParticipantRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Less orders references by kind, then id.
func (r ParticipantRef) Less(o ParticipantRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

// Pair is an unordered participant pair stored in canonical order.
type Pair struct {
	First  ParticipantRef `json:"participant_one"`
	Second ParticipantRef `json:"participant_two"`
}

// NewPair returns the canonical pair for a and b; NewPair(a, b) == NewPair(b, a).
func NewPair(a, b ParticipantRef) Pair {
	if b.Less(a) {
		a, b = b, a
	}
	return Pair{First: a, Second: b}
}

// Contains reports whether r is one side of the pair.
func (p Pair) Contains(r ParticipantRef) bool {
	return p.First == r || p.Second == r
}

// Other returns the side of the pair that is not r.
func (p Pair) Other(r ParticipantRef) (ParticipantRef, bool) {
	switch r {
	case p.First:
		return p.Second, true
	case p.Second:
		return p.First, true
	}
	return ParticipantRef{}, false
}

// Reference is raw caller input naming a participant: either a numeric id
// or an external key (email or auth uid) that still needs resolving.
type Reference struct {
	id  int64
	key string
}

// ParseReference classifies raw input. Digit-only input is numeric and must
// be positive; anything else non-empty is an external key.
func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, ErrInvalidReference
	}
	if isDigits(raw) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Reference{}, ErrInvalidReference
		}
		return Reference{id: id}, nil
	}
	if strings.HasPrefix(raw, "-") {
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Reference{}, ErrInvalidReference
		}
	}
	return Reference{key: raw}, nil
}

// NumericReference wraps an already known id.
func NumericReference(id int64) Reference {
	return Reference{id: id}
}

// Numeric returns the id and true for numeric references.
func (r Reference) Numeric() (int64, bool) {
	return r.id, r.id > 0
}

// Key returns the external key; empty for numeric references.
func (r Reference) Key() string {
	return r.key
}

func (r Reference) String() string {
	if r.id > 0 {
		return strconv.FormatInt(r.id, 10)
	}
	return r.key
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Participant is a read-only directory entry used for display enrichment.
type Participant struct {
	Ref   ParticipantRef `json:"ref"`
	Name  string         `json:"name"`
	Email string         `json:"email,omitempty"`
	Role  string         `json:"role,omitempty"`
}
