package auth

import "context"

type Actor int

const (
	ActorUser Actor = iota + 1
	ActorAdmin
)

// Identity is the caller derived from verified token claims. It is a tagged
// variant: either a regular user known by id, or the configured admin known
// by email alone.
type Identity struct {
	Actor  Actor
	UserID int
	Email  string
}

func (id Identity) IsAdmin() bool {
	return id.Actor == ActorAdmin
}

// IdentityFromClaims resolves verified claims into an Identity. Admin tokens
// carry no user id, only the configured admin email.
func IdentityFromClaims(claims *Claims, adminEmail string) Identity {
	if claims.UserID == 0 && adminEmail != "" && claims.Email == adminEmail {
		return Identity{
			Actor: ActorAdmin,
			Email: claims.Email,
		}
	}
	return Identity{
		Actor:  ActorUser,
		UserID: claims.UserID,
		Email:  claims.Email,
	}
}

type contextKey string

const identityContextKey = contextKey("identity")

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
