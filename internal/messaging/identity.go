package messaging

import (
	"context"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

// Identity is a caller-supplied participant before resolution.
type Identity struct {
	Kind models.Kind
	Ref  models.Reference
}

// ParseIdentity validates raw kind/reference strings at the service boundary.
// prefix names the request fields, e.g. "sender" checks sender_kind and
// sender_id.
func ParseIdentity(prefix, kind, ref string) (Identity, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return Identity{}, invalid(prefix+"_kind", "must be client, agent or admin")
	}
	r, err := models.ParseReference(ref)
	if err != nil {
		return Identity{}, invalid(prefix+"_id", "must be a positive id, an email or an auth uid")
	}
	return Identity{Kind: k, Ref: r}, nil
}

// Resolver maps identities onto canonical participant references.
type Resolver struct {
	dir store.Directory
}

// NewResolver creates a resolver backed by the participant directory.
func NewResolver(dir store.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns numeric references unchanged without an existence check;
// external keys are looked up by email or auth uid.
func (r *Resolver) Resolve(ctx context.Context, party string, id Identity) (models.ParticipantRef, error) {
	if n, ok := id.Ref.Numeric(); ok {
		return models.ParticipantRef{Kind: id.Kind, ID: n}, nil
	}

	n, err := r.dir.ResolveParticipant(ctx, id.Kind, id.Ref.Key())
	if err != nil {
		return models.ParticipantRef{}, storageErr("resolve "+party, err)
	}
	if n <= 0 {
		return models.ParticipantRef{}, &IdentityError{Party: party, Kind: id.Kind, Ref: id.Ref}
	}
	return models.ParticipantRef{Kind: id.Kind, ID: n}, nil
}
