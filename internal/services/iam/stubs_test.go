package iam

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/repository"
)

// stubAccountRepository is an in-memory AccountRepository.
type stubAccountRepository struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*models.Account

	// failWith makes every call return this error.
	failWith error
}

func newStubAccountRepository() *stubAccountRepository {
	return &stubAccountRepository{accounts: map[int64]*models.Account{}}
}

func (r *stubAccountRepository) Create(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("%w: email", repository.ErrConflict)
		}
	}
	if err := a.ApplyPasswordChange(); err != nil {
		return err
	}
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *stubAccountRepository) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubAccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepository) Modify(_ context.Context, id int64, fn func(*models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	if err := fn(&cp); err != nil {
		return nil, err
	}
	r.accounts[id] = &cp
	out := cp
	return &out, nil
}

func (r *stubAccountRepository) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLoginAt = &at
	return nil
}

func (r *stubAccountRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *stubAccountRepository) List(context.Context, repository.AccountFilter) ([]models.Account, int, error) {
	return nil, 0, nil
}

func (r *stubAccountRepository) Count(context.Context, repository.AccountFilter) (int, error) {
	return len(r.accounts), nil
}

func (r *stubAccountRepository) CountBy(context.Context, repository.GroupField, repository.AccountFilter) ([]repository.GroupCount, error) {
	return nil, nil
}

func (r *stubAccountRepository) ExistsWithRole(_ context.Context, role auth.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	for _, a := range r.accounts {
		if a.Roles.Has(role) {
			return true, nil
		}
	}
	return false, nil
}

// put stores an account directly, hashing its pending password.
func (r *stubAccountRepository) put(t *testing.T, email, password string, status models.AccountStatus, roles ...auth.Role) *models.Account {
	t.Helper()
	a := &models.Account{
		Email:     email,
		FirstName: strings.Split(email, "@")[0],
		LastName:  "Test",
		Status:    status,
		Roles:     auth.NewRoleSet(roles...),
	}
	a.SetPassword(password)
	require.NoError(t, r.Create(context.Background(), a))
	return a
}

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (Service, *stubAccountRepository, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    24 * time.Hour,
		Issuer: "school-mis-api",
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)

	repo := newStubAccountRepository()
	svc, err := NewIAMService(IAMServiceDependencies{Accounts: repo, Tokens: tokens}, IAMServiceConfig{Clock: clock.Now})
	require.NoError(t, err)
	return svc, repo, clock
}
