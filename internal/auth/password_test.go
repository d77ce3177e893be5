package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("newpass123")
	require.NoError(t, err)

	assert.NotEqual(t, "newpass123", hash)
	assert.True(t, VerifyPassword("newpass123", hash))
	assert.False(t, VerifyPassword("newpass124", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("newpass123")
	require.NoError(t, err)
	second, err := HashPassword("newpass123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("newpass123", first))
	assert.True(t, VerifyPassword("newpass123", second))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", ""))
	assert.False(t, VerifyPassword("anything", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("anything", "$2a$12$short"))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	pw, err := GenerateTemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, pw, TemporaryPasswordLength)
	for _, c := range pw {
		assert.Contains(t, base36, string(c))
	}
}

func TestPasswordChange_AppliesOnce(t *testing.T) {
	var change PasswordChange

	hash, changed, err := change.Apply()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, hash)

	change.Set("s3cret-pass")
	assert.True(t, change.Pending())

	hash, changed, err = change.Apply()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, VerifyPassword("s3cret-pass", hash))

	// A second Apply must not rehash anything.
	again, changed, err := change.Apply()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, again)
	assert.False(t, change.Pending())
}
