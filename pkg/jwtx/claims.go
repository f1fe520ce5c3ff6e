package jwtx

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiryBuffer is how long before actual expiry we start treating an
// access token as stale. Refreshing a little early keeps requests from
// landing server-side with a token that expired in flight.
const DefaultExpiryBuffer = 5 * time.Minute

// Claims is a read-only view over the payload segment of a JWT. The client
// never verifies signatures (that is the backend's job); it only needs the
// subject and expiry to decide who the token belongs to and when to refresh.
type Claims struct {
	// Subject is the user identifier. Backends have shipped this under
	// "sub", "user_id" and "id" at various points, so all three are accepted.
	Subject string

	// ExpiresAt is the "exp" claim. Zero when the token carries none.
	ExpiresAt time.Time
}

// Decode extracts claims from a JWT without verifying its signature.
// Malformed input yields nil rather than an error: callers treat a token
// they cannot read the same as no token at all.
func Decode(token string) *Claims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	c := &Claims{Subject: subjectOf(claims)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c
}

// IsExpiringSoon reports whether the token should be refreshed before use.
// Undecodable tokens and tokens without an "exp" claim count as expiring:
// when in doubt, refresh.
func IsExpiringSoon(token string, buffer time.Duration) bool {
	c := Decode(token)
	if c == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return time.Until(c.ExpiresAt) < buffer
}

// subjectOf digs the user identifier out of whichever claim name the issuing
// backend used. Numeric IDs are formatted without an exponent.
func subjectOf(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
