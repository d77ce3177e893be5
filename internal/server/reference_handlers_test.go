package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilschoy78/school-mis-api/internal/auth"
)

type referenceJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsActive bool   `json:"isActive"`
}

func TestReferenceRoutes(t *testing.T) {
	for _, base := range []string{"/departments", "/positions"} {
		t.Run(base, func(t *testing.T) {
			env := newTestEnv(t)
			admin := env.tokenFor(t, env.seed(t, "admin@school.test", auth.RoleAdmin))
			staff := env.tokenFor(t, env.seed(t, "staff@school.test", auth.RoleStaff))
			teacher := env.tokenFor(t, env.seed(t, "teacher@school.test", auth.RoleTeacher))

			assertError(t, env.do(t, http.MethodGet, base, "", nil), http.StatusUnauthorized, "unauthorized")
			assertError(t, env.do(t, http.MethodGet, base, teacher, nil), http.StatusForbidden, "forbidden")
			assertError(t, env.do(t, http.MethodPost, base, staff, map[string]any{"name": "Science"}),
				http.StatusForbidden, "forbidden")

			rec := env.do(t, http.MethodPost, base, admin, map[string]any{"name": "  Science  "})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			created := decodeBody[referenceJSON](t, rec)
			assert.Equal(t, "Science", created.Name)
			assert.True(t, created.IsActive)
			assert.NotEmpty(t, created.Category)

			assertError(t, env.do(t, http.MethodPost, base, admin, map[string]any{"name": "Science"}),
				http.StatusConflict, "conflict")
			assertError(t, env.do(t, http.MethodPost, base, admin, map[string]any{"name": "Art", "category": "nonsense"}),
				http.StatusBadRequest, "invalid_argument")

			rec = env.do(t, http.MethodGet, base, staff, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, decodeBody[[]referenceJSON](t, rec), 1)

			item := fmt.Sprintf("%s/%d", base, created.ID)
			rec = env.do(t, http.MethodPatch, item, admin, map[string]any{"name": "Natural Science"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "Natural Science", decodeBody[referenceJSON](t, rec).Name)

			rec = env.do(t, http.MethodPatch, item+"/toggle-active", admin, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.False(t, decodeBody[referenceJSON](t, rec).IsActive)

			rec = env.do(t, http.MethodGet, base+"?isActive=true", staff, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Empty(t, decodeBody[[]referenceJSON](t, rec))

			rec = env.do(t, http.MethodGet, base+"?isActive=false", staff, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, decodeBody[[]referenceJSON](t, rec), 1)

			assertError(t, env.do(t, http.MethodGet, base+"/999", staff, nil), http.StatusNotFound, "not_found")
			assertError(t, env.do(t, http.MethodGet, base+"?isActive=maybe", staff, nil), http.StatusBadRequest, "invalid_argument")
		})
	}
}
