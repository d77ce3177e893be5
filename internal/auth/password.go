package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for every stored password.
const PasswordCost = 12

// TemporaryPasswordLength is the length of generated registration passwords.
const TemporaryPasswordLength = 8

// ErrEmptyPassword is returned when hashing an empty plaintext.
var ErrEmptyPassword = errors.New("password must not be empty")

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// HashPassword returns the bcrypt hash of plaintext.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. A malformed hash
// simply fails verification.
func VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// dummyHash is compared against when no account exists so the unknown-email
// path spends the same bcrypt time as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), PasswordCost)

// BurnPasswordCheck performs a bcrypt comparison whose result is discarded.
func BurnPasswordCheck(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}

// GenerateTemporaryPassword returns a random lowercase base-36 password.
func GenerateTemporaryPassword() (string, error) {
	buf := make([]byte, TemporaryPasswordLength)
	max := big.NewInt(int64(len(base36)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = base36[n.Int64()]
	}
	return string(buf), nil
}

// PasswordChange records the intent to replace a stored password. The zero
// value means "unchanged". Apply hashes the pending plaintext exactly once.
type PasswordChange struct {
	plaintext string
	pending   bool
}

// Set records plaintext as the new password.
func (c *PasswordChange) Set(plaintext string) {
	c.plaintext = plaintext
	c.pending = true
}

// Pending reports whether a new password awaits hashing.
func (c *PasswordChange) Pending() bool { return c.pending }

// Apply hashes the pending plaintext and clears the intent. It returns
// ("", false, nil) when nothing is pending.
func (c *PasswordChange) Apply() (hash string, changed bool, err error) {
	if !c.pending {
		return "", false, nil
	}
	hash, err = HashPassword(c.plaintext)
	if err != nil {
		return "", false, err
	}
	c.plaintext = ""
	c.pending = false
	return hash, true, nil
}
