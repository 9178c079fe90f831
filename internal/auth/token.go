// Package auth decodes session tokens, manages session cookies and guards
// page routes by role.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veryfrut/storefront/pkg/middleware"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Decoder turns session tokens into claims. With a secret it verifies the
// HMAC signature; without one it only decodes the payload for routing and
// leaves verification to the backend.
type Decoder struct {
	secret []byte
	now    func() time.Time
}

// NewDecoder creates a token decoder. An empty secret disables signature
// verification.
func NewDecoder(secret string) *Decoder {
	d := &Decoder{now: time.Now}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

// Verifies reports whether signatures are checked.
func (d *Decoder) Verifies() bool { return d.secret != nil }

// Decode parses token and returns its claims. Expired tokens are rejected
// in both modes.
func (d *Decoder) Decode(token string) (*middleware.Claims, error) {
	claims := jwt.MapClaims{}

	if d.secret != nil {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return d.secret, nil
		}, jwt.WithTimeFunc(d.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if !parsed.Valid {
			return nil, ErrInvalidToken
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if exp != nil && !d.now().Before(exp.Time) {
			return nil, ErrTokenExpired
		}
	}

	out := &middleware.Claims{
		UserID: claimID(claims, "user_id", "userId", "id", "sub"),
		Email:  claimString(claims, "email"),
		Role:   claimString(claims, "role"),
	}
	if out.UserID == "" {
		return nil, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}
	return out, nil
}

// Validator adapts Decode to the API auth middleware.
func (d *Decoder) Validator() middleware.TokenValidator {
	return d.Decode
}

// claimID returns the first of keys present as a string or whole number.
func claimID(c jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := c[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v > 0 && v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
		}
	}
	return ""
}

func claimString(c jwt.MapClaims, key string) string {
	s, _ := c[key].(string)
	return s
}
