package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
)

// stubAuthenticator maps raw Authorization headers to principals.
type stubAuthenticator struct {
	principals map[string]auth.Principal
	err        error
}

func (s stubAuthenticator) Authenticate(_ context.Context, req iam.AuthRequest) (*auth.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	h := req.Headers.Get("Authorization")
	if h == "" {
		return nil, nil
	}
	p, ok := s.principals[h]
	if !ok {
		return nil, iam.ErrInvalidToken
	}
	return &p, nil
}

var (
	teacher = auth.Principal{AccountID: 1, Email: "t@x.com", Roles: []auth.Role{auth.RoleTeacher}}
	admin   = auth.Principal{AccountID: 2, Email: "a@x.com", Roles: []auth.Role{auth.RoleAdmin}}
)

func newStub() stubAuthenticator {
	return stubAuthenticator{principals: map[string]auth.Principal{
		"Bearer teacher": teacher,
		"Bearer admin":   admin,
	}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFromContext(r.Context())
		w.Header().Set("X-Account", p.Email)
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAuthn(t *testing.T) {
	required := NewAuthnMiddleware(AuthnDependencies{Authenticator: newStub()})(okHandler())
	optional := NewOptionalAuthnMiddleware(AuthnDependencies{Authenticator: newStub()})(okHandler())

	tests := []struct {
		name       string
		handler    http.Handler
		header     string
		wantStatus int
		wantEmail  string
	}{
		{"required without token", required, "", http.StatusUnauthorized, ""},
		{"required with bad token", required, "Bearer forged", http.StatusUnauthorized, ""},
		{"required with token", required, "Bearer teacher", http.StatusNoContent, "t@x.com"},
		{"optional without token", optional, "", http.StatusNoContent, ""},
		{"optional with bad token", optional, "Bearer forged", http.StatusUnauthorized, ""},
		{"optional with token", optional, "Bearer admin", http.StatusNoContent, "a@x.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.handler, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantEmail, rec.Header().Get("X-Account"))
			if rec.Code == http.StatusUnauthorized {
				assert.Equal(t, apperr.KindUnauthorized, decodeError(t, rec).Code)
			}
		})
	}
}

func TestAuthn_StorageFailureIs500(t *testing.T) {
	h := NewAuthnMiddleware(AuthnDependencies{Authenticator: stubAuthenticator{err: errors.New("db down")}})(okHandler())
	rec := serve(h, "Bearer teacher")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "internal server error", detail.Message)
}

func TestRequireRoles(t *testing.T) {
	policy, err := auth.NewPolicy(auth.DefaultOperations...)
	require.NoError(t, err)

	authn := NewAuthnMiddleware(AuthnDependencies{Authenticator: newStub()})
	guarded := authn(RequireRoles(policy, auth.UsersList, nil)(okHandler()))

	t.Run("no token is unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(guarded, "").Code)
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		rec := serve(guarded, "Bearer teacher")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperr.KindForbidden, decodeError(t, rec).Code)
	})

	t.Run("allowed role passes", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, serve(guarded, "Bearer admin").Code)
	})

	t.Run("guard without authn is unauthorized", func(t *testing.T) {
		bare := RequireRoles(policy, auth.UsersList, nil)(okHandler())
		assert.Equal(t, http.StatusUnauthorized, serve(bare, "").Code)
	})

	t.Run("unknown operation panics at wiring", func(t *testing.T) {
		assert.Panics(t, func() { RequireRoles(policy, "users:teleport", nil) })
	})
}

func TestRequireRolesOrSelf(t *testing.T) {
	policy, err := auth.NewPolicy(auth.DefaultOperations...)
	require.NoError(t, err)

	selfIsOne := func(_ *http.Request, p auth.Principal) bool { return p.AccountID == 1 }
	h := NewAuthnMiddleware(AuthnDependencies{Authenticator: newStub()})(
		RequireRolesOrSelf(policy, auth.UsersUpdatePassword, selfIsOne, nil)(okHandler()),
	)

	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer teacher").Code, "self")
	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer admin").Code, "by role")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.KindInvalidArgument))
	assert.Equal(t, http.StatusConflict, StatusFor(apperr.KindConflict))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.KindInternal))
}
