package messaging

import (
	"errors"
	"fmt"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

var (
	ErrIdentityNotFound     = errors.New("participant not found")
	ErrValidation           = errors.New("validation failed")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrStorage              = errors.New("storage failure")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IdentityError reports which party could not be resolved.
type IdentityError struct {
	Party string // "sender", "receiver", "caller", "counterpart"
	Kind  models.Kind
	Ref   models.Reference
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("%s not found: no %s matches %q", e.Party, e.Kind, e.Ref.String())
}

func (e *IdentityError) Unwrap() error { return ErrIdentityNotFound }

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
