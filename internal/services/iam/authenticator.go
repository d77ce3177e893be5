package iam

import (
	"context"
	"net/http"
	"strings"

	"github.com/wilschoy78/school-mis-api/internal/auth"
)

// Authenticator validates request credentials and returns a Principal.
//
// Return values:
//   - (principal, nil): Authentication successful
//   - (nil, nil): Credentials not present
//   - (nil, error): Credentials present but invalid
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error)
}

// AuthRequest wraps the parts of an HTTP request authenticators read.
type AuthRequest struct {
	Headers http.Header
}

// BearerAuthenticator authenticates "Authorization: Bearer <token>" headers
// against Service.AuthenticateToken.
type BearerAuthenticator struct {
	svc Service
}

// NewBearerAuthenticator creates a bearer token authenticator backed by svc.
func NewBearerAuthenticator(svc Service) *BearerAuthenticator {
	return &BearerAuthenticator{svc: svc}
}

// Authenticate extracts and validates the bearer token.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error) {
	header := strings.TrimSpace(req.Headers.Get("Authorization"))
	if header == "" {
		return nil, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	return a.svc.AuthenticateToken(ctx, strings.TrimSpace(token))
}
