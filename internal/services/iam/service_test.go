package iam

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

func TestNewIAMService_RequiresDependencies(t *testing.T) {
	_, err := NewIAMService(IAMServiceDependencies{}, IAMServiceConfig{})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to staff and signs in", func(t *testing.T) {
		svc, repo, _ := newTestService(t)

		res, err := svc.Register(ctx, RegisterInput{
			Email:     "a@x.com",
			Password:  "correct horse",
			FirstName: "Ana",
			LastName:  "Reyes",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Empty(t, res.TemporaryPassword)
		assert.False(t, res.MustChangePassword)
		assert.Equal(t, []auth.Role{auth.RoleStaff}, res.Account.RoleList())

		stored, err := repo.GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.NotEqual(t, "correct horse", stored.PasswordHash)
		assert.True(t, stored.CheckPassword("correct horse"))
		assert.Equal(t, models.StatusActive, stored.Status)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "first-pass"})
		require.NoError(t, err)

		_, err = svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "second-pass"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, "Email already registered", apperr.MessageOf(err))
	})

	t.Run("generates a temporary password", func(t *testing.T) {
		svc, repo, _ := newTestService(t)

		res, err := svc.Register(ctx, RegisterInput{Email: "gen@x.com", Roles: []auth.Role{auth.RoleTeacher}})
		require.NoError(t, err)
		assert.Len(t, res.TemporaryPassword, auth.TemporaryPasswordLength)
		assert.True(t, res.MustChangePassword)

		stored, err := repo.GetByEmail(ctx, "gen@x.com")
		require.NoError(t, err)
		assert.True(t, stored.CheckPassword(res.TemporaryPassword))
		assert.Equal(t, []auth.Role{auth.RoleTeacher}, stored.RoleList())
	})

	t.Run("storage failure is internal", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.failWith = errors.New("connection refused")

		_, err := svc.Register(ctx, RegisterInput{Email: "b@x.com", Password: "whatever1"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo, clock := newTestService(t)

	active := repo.put(t, "active@x.com", "right-pass", models.StatusActive, auth.RoleTeacher)
	repo.put(t, "off@x.com", "right-pass", models.StatusInactive, auth.RoleTeacher)
	repo.put(t, "held@x.com", "right-pass", models.StatusSuspended, auth.RoleStaff)

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, "active@x.com", "right-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.True(t, clock.Now().Add(24*time.Hour).Equal(res.ExpiresAt))
		assert.Equal(t, active.ID, res.Account.ID)

		stored, err := repo.GetByID(ctx, active.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLoginAt)
		assert.True(t, clock.Now().Equal(*stored.LastLoginAt))
	})

	failures := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@x.com", "right-pass"},
		{"wrong password", "active@x.com", "wrong-pass"},
		{"inactive account", "off@x.com", "right-pass"},
		{"suspended account", "held@x.com", "right-pass"},
	}

	var messages []string
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
			messages = append(messages, err.Error())
		})
	}

	t.Run("failures are indistinguishable", func(t *testing.T) {
		require.Len(t, messages, len(failures))
		for _, m := range messages {
			assert.Equal(t, messages[0], m)
		}
	})
}

func TestAuthenticateToken(t *testing.T) {
	ctx := context.Background()
	svc, repo, clock := newTestService(t)
	repo.put(t, "t@x.com", "teach-pass", models.StatusActive, auth.RoleTeacher, auth.RoleStaff)

	res, err := svc.Login(ctx, "t@x.com", "teach-pass")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		p, err := svc.AuthenticateToken(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.Account.ID, p.AccountID)
		assert.Equal(t, "t@x.com", p.Email)
		assert.ElementsMatch(t, []auth.Role{auth.RoleStaff, auth.RoleTeacher}, p.Roles)
		assert.NotEmpty(t, p.TokenID)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.AuthenticateToken(ctx, "not.a.jwt")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("deleted account", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, res.Account.ID))
		_, err := svc.AuthenticateToken(ctx, res.Token)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

		_, err = svc.ValidateSubject(ctx, res.Account.ID)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		other := repo.put(t, "late@x.com", "late-pass", models.StatusActive, auth.RoleStaff)
		late, err := svc.Login(ctx, other.Email, "late-pass")
		require.NoError(t, err)

		clock.Advance(24*time.Hour + time.Second)
		_, err = svc.AuthenticateToken(ctx, late.Token)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})
}

func TestBearerAuthenticator(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	repo.put(t, "lib@x.com", "books-pass", models.StatusActive, auth.RoleLibrarian)
	res, err := svc.Login(ctx, "lib@x.com", "books-pass")
	require.NoError(t, err)

	authn := NewBearerAuthenticator(svc)

	tests := []struct {
		name      string
		header    string
		wantNil   bool
		wantError bool
	}{
		{name: "no header", header: "", wantNil: true},
		{name: "bearer token", header: "Bearer " + res.Token},
		{name: "lowercase scheme", header: "bearer " + res.Token},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantNil: true, wantError: true},
		{name: "empty bearer", header: "Bearer ", wantNil: true, wantError: true},
		{name: "bad token", header: "Bearer abc.def.ghi", wantNil: true, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			p, err := authn.Authenticate(ctx, AuthRequest{Headers: h})
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, p)
			} else {
				require.NotNil(t, p)
				assert.Equal(t, []auth.Role{auth.RoleLibrarian}, p.Roles)
			}
		})
	}
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	input := BootstrapInput{Email: "admin@super.com", Password: "super.admin.pass", FirstName: "Super", LastName: "Admin"}

	created, err := svc.Bootstrap(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Bootstrap(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByEmail(ctx, "admin@super.com")
	require.NoError(t, err)
	assert.True(t, stored.Roles.Has(auth.RoleSuperAdmin))
	assert.False(t, stored.MustChangePassword)

	res, err := svc.Login(ctx, "admin@super.com", "super.admin.pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}
