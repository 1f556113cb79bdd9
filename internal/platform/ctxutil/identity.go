package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

// Marketplace roles carried in the access token.
const (
	RoleClient   = "client"
	RoleAttorney = "attorney"
	RoleAdmin    = "admin"
)

type identityKey struct{}

// Identity is the authenticated caller. AttorneyProfileID is set only for attorneys.
type Identity struct {
	UserID            uuid.UUID
	Role              string
	AttorneyProfileID uuid.UUID
}

func (i *Identity) IsClient() bool { return i != nil && i.Role == RoleClient }
func (i *Identity) IsAttorney() bool {
	return i != nil && i.Role == RoleAttorney && i.AttorneyProfileID != uuid.Nil
}
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == RoleAdmin }

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}
