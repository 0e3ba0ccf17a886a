package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access tokens from refresh tokens signed with the
// same secret.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// tokenClaims is the signed payload. expireAt is unix milliseconds and is
// deliberately not the registered "exp" claim: expiry is checked by the
// caller, never by the parser.
type tokenClaims struct {
	jwt.RegisteredClaims
	Kind     TokenKind `json:"kind"`
	ExpireAt int64     `json:"expireAt"`
}

// Claims is the decoded content of a verified token.
type Claims struct {
	Subject  string
	ID       string
	Kind     TokenKind
	ExpireAt time.Time
}

// Expired reports whether the token is stale at now. A token whose expireAt
// equals now is expired.
func (c *Claims) Expired(now time.Time) bool {
	return now.UnixMilli() >= c.ExpireAt.UnixMilli()
}

// RefreshToken is a freshly signed refresh token. Only ID is persisted.
type RefreshToken struct {
	ID       string
	Token    string
	ExpireAt time.Time
}

// TokenCodec signs and verifies HS256 tokens with a server-held secret.
type TokenCodec struct {
	secret     []byte
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec builds a codec from the secret and refresh lifetime in cfg.
func NewTokenCodec(cfg *config.Config, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{
		secret:     []byte(cfg.SecretKey),
		refreshTTL: cfg.RefreshTokenValidityDuration,
		now:        time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *TokenCodec) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// SignAccess issues an access token for subject valid for ttl.
func (c *TokenCodec) SignAccess(subject string, ttl time.Duration) (string, error) {
	now := c.now()
	return c.sign(tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Kind:     KindAccess,
		ExpireAt: now.Add(ttl).UnixMilli(),
	})
}

// SignRefresh issues a refresh token for subject carrying a fresh random id.
func (c *TokenCodec) SignRefresh(subject string) (*RefreshToken, error) {
	now := c.now()
	id := uuid.NewString()
	expireAt := now.Add(c.refreshTTL).UnixMilli()

	token, err := c.sign(tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Kind:     KindRefresh,
		ExpireAt: expireAt,
	})
	if err != nil {
		return nil, err
	}

	return &RefreshToken{ID: id, Token: token, ExpireAt: time.UnixMilli(expireAt)}, nil
}

// Verify checks the signature and decodes the claims. It fails with
// common.ErrInvalidSignature or common.ErrMalformedToken. Input without any
// separator is malformed; any other segment count is a signature failure. Expiry is NOT
// enforced here; callers must check Claims.Expired.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	switch {
	case len(parts) == 1:
		return nil, common.ErrMalformedToken
	case len(parts) != 3:
		// A separator was added or removed, so the signed input no longer
		// matches whatever the signature covers.
		return nil, common.ErrInvalidSignature
	}

	// The signature is checked over the raw segments before anything is
	// decoded, so a tampered token never yields a payload.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return nil, common.ErrInvalidSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return nil, common.ErrInvalidSignature
	}

	claims := &tokenClaims{}
	if _, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}

	if claims.Subject == "" || claims.ExpireAt == 0 {
		return nil, common.ErrMalformedToken
	}
	switch claims.Kind {
	case KindAccess:
	case KindRefresh:
		if claims.ID == "" {
			return nil, common.ErrMalformedToken
		}
	default:
		return nil, common.ErrMalformedToken
	}

	return &Claims{
		Subject:  claims.Subject,
		ID:       claims.ID,
		Kind:     claims.Kind,
		ExpireAt: time.UnixMilli(claims.ExpireAt),
	}, nil
}
