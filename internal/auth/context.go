package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
)

// ActorContext holds the authenticated caller for the duration of a request
type ActorContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.RoleType
	// StoreIDs are the stores the actor belongs to, either as owner or staff.
	// Admins leave this empty; they are not scoped to stores.
	StoreIDs []uuid.UUID
}

type contextKey string

const actorContextKey contextKey = "actorContext"

// WithActorContext adds the actor to the context
func WithActorContext(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// FromContext extracts the actor from the context
func FromContext(ctx context.Context) (*ActorContext, bool) {
	actor, ok := ctx.Value(actorContextKey).(*ActorContext)
	return actor, ok
}

// MustFromContext extracts the actor or panics. Only call behind the
// authentication middleware.
func MustFromContext(ctx context.Context) *ActorContext {
	actor, ok := FromContext(ctx)
	if !ok {
		panic("actor context not found in context")
	}
	return actor
}

// HasRole checks if the actor has a specific role
func (a *ActorContext) HasRole(role domain.RoleType) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the actor has any of the specified roles
func (a *ActorContext) HasAnyRole(roles ...domain.RoleType) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if the actor is a platform administrator
func (a *ActorContext) IsAdmin() bool {
	return a.HasRole(domain.RoleAdmin)
}

// IsMemberOf checks if the actor belongs to the given store
func (a *ActorContext) IsMemberOf(storeID uuid.UUID) bool {
	for _, id := range a.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// RolesAsStrings returns roles as a slice of strings
func (a *ActorContext) RolesAsStrings() []string {
	result := make([]string, len(a.Roles))
	for i, role := range a.Roles {
		result[i] = string(role)
	}
	return result
}
