package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidToken wraps every token validation failure.
var ErrInvalidToken = errors.New("invalid token")

// MinSecretLength is the minimum HMAC secret size accepted by NewTokenIssuer.
const MinSecretLength = 32

// Claims is the payload of an access token. Roles are a snapshot taken at
// issuance; later role changes do not alter tokens already handed out.
type Claims struct {
	Email string `json:"email"`
	Roles []Role `json:"roles"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return id, nil
}

func (c *Claims) clone() *Claims {
	cp := *c
	cp.Roles = slices.Clone(c.Roles)
	return &cp
}

// TokenSubject is the identity a token is minted for.
type TokenSubject struct {
	AccountID int64
	Email     string
	Roles     []Role
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret    []byte
	TTL       time.Duration
	Issuer    string
	CacheSize int // validated-claims cache entries; 0 disables caching
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// TokenIssuer mints and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
	cache  *lru.Cache[string, *Claims]
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig, opts ...TokenOption) (*TokenIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	t := &TokenIssuer{
		secret: slices.Clone(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}
	t.parser = jwt.NewParser(parserOpts...)

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *Claims](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create claims cache: %w", err)
		}
		t.cache = cache
	}
	return t, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token for sub valid from now until now+TTL.
func (t *TokenIssuer) Issue(sub TokenSubject) (string, *Claims, error) {
	if sub.AccountID <= 0 {
		return "", nil, errors.New("issue token: account id is required")
	}

	now := t.now().UTC().Truncate(time.Second)
	claims := &Claims{
		Email: sub.Email,
		Roles: slices.Clone(sub.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(sub.AccountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.clone(), nil
}

// Validate verifies signature, algorithm, issuer and expiry and returns the
// claims. Every failure wraps ErrInvalidToken.
func (t *TokenIssuer) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	key := tokenHash(token)
	if t.cache != nil {
		if cached, ok := t.cache.Get(key); ok {
			if cached.ExpiresAt != nil && t.now().Before(cached.ExpiresAt.Time) {
				return cached.clone(), nil
			}
			t.cache.Remove(key)
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenExpired)
		}
	}

	claims := &Claims{}
	parsed, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Add(key, claims.clone())
	}
	return claims, nil
}

// tokenHash keys the claims cache without retaining raw tokens.
func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
