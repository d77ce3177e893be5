package iam

import (
	"context"
	"time"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

// Service provides authentication operations.
type Service interface {
	// Register creates an account and signs it in.
	//
	// Email must be unused (apperr conflict "Email already registered").
	// Roles default to {staff}. When Password is empty a temporary one is
	// generated and returned in AuthResult.TemporaryPassword.
	//
	// The service does not decide who may grant elevated roles; callers
	// gate that before calling.
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)

	// Login verifies credentials and issues a token.
	//
	// Unknown email, inactive account and wrong password all return
	// ErrInvalidCredentials with identical text.
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	// ValidateSubject re-resolves the account a token was issued to.
	// Returns an apperr not-found error when the account was deleted since.
	ValidateSubject(ctx context.Context, id int64) (*models.Account, error)

	// AuthenticateToken validates a bearer token and returns its principal.
	AuthenticateToken(ctx context.Context, token string) (*auth.Principal, error)

	// Bootstrap seeds the SuperAdmin account unless one already exists.
	// Returns true when an account was created.
	Bootstrap(ctx context.Context, input BootstrapInput) (bool, error)
}

// RegisterInput carries a self-service or administrative registration.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	MiddleName *string
	Phone      *string
	Roles      []auth.Role
}

// BootstrapInput describes the SuperAdmin seed account.
type BootstrapInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by Register and Login. Account never carries a
// password hash when serialized.
type AuthResult struct {
	Account            *models.Account
	Token              string
	ExpiresAt          time.Time
	MustChangePassword bool

	// TemporaryPassword is set only when Register generated the password.
	TemporaryPassword string
}
