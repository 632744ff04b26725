package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding of random tokens
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for signing the session cookie
)

// ErrInvalidSessionToken is returned by ParseSessionToken for any cookie
// value that is malformed, expired, signed with another key or missing
// the session id.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionToken is the signed cookie value handed to the browser along with
// its expiry.  The token carries only the server-side session id; the
// principal itself lives in the session store.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT whose subject is the
// session id.  A cookie that fails verification is treated as no session
// at all, so a forged id never reaches the store.
func NewSessionToken(secret, sessionID string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns the session id it carries.
func ParseSessionToken(secret, raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Subject, nil
}

// NewCSRFToken returns 64 hex characters drawn from 32 random bytes.
func NewCSRFToken() (string, error) {
	return randomHex(32)
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
