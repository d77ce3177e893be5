// Package iam provides identity services for the school MIS API.
//
// It owns the credential lifecycle of an account:
//
//   - Registration with a default role and a supplied or generated password
//   - Login with enumeration-resistant failures
//   - Bearer token authentication back to a live account
//   - Idempotent SuperAdmin bootstrap
//
// Request Flow:
//
//	Request → BearerAuthenticator.Authenticate() → auth.Principal (token role snapshot)
//	       ↓
//	   RequireRoles(policy, op) → handler
//
// Roles are read from the token at authentication time. A role change takes
// effect on the account's next login; the token stays valid until it expires.
package iam
