package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/bunx"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/migrations"
	"github.com/wilschoy78/school-mis-api/internal/repository"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/reference"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
	"github.com/wilschoy78/school-mis-api/internal/telemetry"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fixtureHash is a bcrypt hash so seeded accounts skip the cost-12 hashing.
// Seeded accounts authenticate with tokens, never with passwords.
const fixtureHash = "$2a$04$0b6sJ1p3l6n9m0c5n0dYoeQeCq8b7l8S6yZ1p0JY9lC8r2Q1x0p0G"

type testEnv struct {
	router   chi.Router
	accounts *repository.BunAccountRepository
	tokens   *auth.TokenIssuer
	metrics  *telemetry.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })
	_, err = migrations.Apply(context.Background(), db)
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "school-mis-api",
	})
	require.NoError(t, err)

	accounts := repository.NewBunAccountRepository(db)
	iamSvc, err := iam.NewIAMService(iam.IAMServiceDependencies{Accounts: accounts, Tokens: tokens}, iam.IAMServiceConfig{})
	require.NoError(t, err)

	policy, err := auth.NewPolicy(auth.DefaultOperations...)
	require.NoError(t, err)

	validator, err := validation.NewRequestValidator(16)
	require.NoError(t, err)

	metrics := telemetry.NewMetrics()
	router, err := NewRouter(RouterOptions{
		IAM:           iamSvc,
		Authenticator: iam.NewBearerAuthenticator(iamSvc),
		Policy:        policy,
		Directory:     directory.NewService(accounts, directory.Config{DefaultPassword: "new.user.pass"}),
		Departments:   reference.NewDepartmentService(repository.NewBunDepartmentRepository(db), nil),
		Positions:     reference.NewPositionService(repository.NewBunPositionRepository(db), nil),
		Validator:     validator,
		Metrics:       metrics,
	})
	require.NoError(t, err)

	return &testEnv{router: router, accounts: accounts, tokens: tokens, metrics: metrics}
}

// seed stores an active account with the fixture hash.
func (e *testEnv) seed(t *testing.T, email string, roles ...auth.Role) *models.Account {
	t.Helper()
	a := &models.Account{
		Email:        email,
		PasswordHash: fixtureHash,
		FirstName:    "Test",
		LastName:     "Account",
		Status:       models.StatusActive,
		Roles:        auth.NewRoleSet(roles...),
	}
	require.NoError(t, e.accounts.Create(context.Background(), a))
	return a
}

// tokenFor mints a bearer token for a.
func (e *testEnv) tokenFor(t *testing.T, a *models.Account) string {
	t.Helper()
	token, _, err := e.tokens.Issue(auth.TokenSubject{AccountID: a.ID, Email: a.Email, Roles: a.RoleList()})
	require.NoError(t, err)
	return token
}

// do sends a request through the router. body is JSON-encoded unless it is
// a string, which is sent verbatim.
func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorResponse](t, rec)
	require.Equal(t, code, body.Error.Code)
	return body
}

func ptr[T any](v T) *T { return &v }
