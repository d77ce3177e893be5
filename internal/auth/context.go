package auth

import (
	"context"
	"slices"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	// AccountID references accounts.id.
	AccountID int64
	// Email is the login email at token issuance.
	Email string
	// Roles is the role snapshot carried by the token.
	Roles []Role
	// TokenID is the jti of the presented token.
	TokenID string
}

// HasAny reports whether the principal holds any of required.
func (p Principal) HasAny(required ...Role) bool {
	return HasAny(p.Roles, required)
}

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal on the context for downstream consumers.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	principal.Roles = slices.Clone(principal.Roles)
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
