package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("User not found"), KindNotFound},
		{"wrapped conflict", fmt.Errorf("register: %w", Conflict("Email already registered")), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"explicit wrap", Wrap(KindForbidden, errors.New("denied"), "Forbidden"), KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf_HidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: relation accounts does not exist")))
	assert.Equal(t, "internal server error", MessageOf(Wrap(KindInternal, errors.New("x"), "secret detail")))
	assert.Equal(t, "User not found", MessageOf(fmt.Errorf("get: %w", NotFound("User not found"))))
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("login: %w", Unauthorized("invalid email or password"))
	assert.True(t, errors.Is(err, Unauthorized("")))
	assert.False(t, errors.Is(err, Forbidden("")))
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, cause, "save account")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save account: disk full", err.Error())
}
