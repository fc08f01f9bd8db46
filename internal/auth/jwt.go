// Package auth provides authentication for the cost optimizer API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTokenExpiry is the lifetime of an issued access token.
const DefaultTokenExpiry = 30 * time.Minute

// Claims represents the JWT claims of an access token. Sub carries the
// username.
type Claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
}

// IsExpired reports whether the token has expired at now.
func (c *Claims) IsExpired(now time.Time) bool {
	return now.Unix() >= c.Exp
}

var (
	b64 = base64.RawURLEncoding
	// jwtHeader is the encoded header shared by every token.
	jwtHeader = b64.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
)

// Errors returned by JWT operations.
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidSecret = errors.New("jwt secret must not be empty")
)

// JWTManager handles token generation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewJWTManager creates a new JWTManager with the given secret and token
// lifetime. A non-positive expiry falls back to DefaultTokenExpiry.
func NewJWTManager(secret string, expiry time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrInvalidSecret
	}
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// WithClock replaces the clock used for issuing and expiring tokens.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// GenerateToken issues an HS256 token whose subject is username.
func (m *JWTManager) GenerateToken(username string) (string, error) {
	now := m.now().UTC()
	payload, err := json.Marshal(Claims{
		Sub: username,
		Iat: now.Unix(),
		Exp: now.Add(m.expiry).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	unsigned := jwtHeader + "." + b64.EncodeToString(payload)
	return unsigned + "." + b64.EncodeToString(m.sign(unsigned)), nil
}

// ValidateToken checks the signature and expiry of tokenStr and returns its
// claims. Any malformed token yields ErrInvalidToken.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	unsigned, sig, ok := cutLast(tokenStr, ".")
	if !ok {
		return nil, ErrInvalidToken
	}
	header, body, ok := strings.Cut(unsigned, ".")
	if !ok || header != jwtHeader {
		return nil, ErrInvalidToken
	}

	got, err := b64.DecodeString(sig)
	if err != nil || !hmac.Equal(got, m.sign(unsigned)) {
		return nil, ErrInvalidToken
	}

	raw, err := b64.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil || claims.Sub == "" {
		return nil, ErrInvalidToken
	}
	if claims.IsExpired(m.now()) {
		return nil, ErrExpiredToken
	}
	return &claims, nil
}

func (m *JWTManager) sign(unsigned string) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(unsigned))
	return h.Sum(nil)
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
