package iam

import "github.com/wilschoy78/school-mis-api/internal/apperr"

// ErrInvalidCredentials is the single login failure surfaced to callers.
var ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")

// ErrInvalidToken covers missing, malformed, expired and orphaned tokens.
var ErrInvalidToken = apperr.Unauthorized("invalid or expired token")
