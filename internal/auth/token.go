package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// signing method, malformed claims, or an expired token. Callers must not
// distinguish between the cases in responses.
var ErrInvalidToken = errors.New("invalid token")

// SessionToken is a signed JWT together with its lifetime in seconds. The
// token is stateless; expiry is enforced purely by signature verification.
type SessionToken struct {
	Token     string // the serialized JWT string
	ExpiresIn int    // lifetime in seconds, fixed at issuance
}

// IssueToken builds and signs an HS256 JWT for a user. The only custom
// claim is the user id; exp and iat are derived from the configured TTL.
func IssueToken(secret string, userID int64, ttlSec int) (SessionToken, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(ttlSec) * time.Second).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ExpiresIn: ttlSec}, nil
}

// ParseToken verifies the signature and expiry of a session token and
// extracts the user id claim. Anything short of a fully valid token
// yields ErrInvalidToken.
func ParseToken(secret, raw string) (int64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, ErrInvalidToken
	}
	return int64(id), nil
}
