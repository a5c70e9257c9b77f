package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the parts of an access token the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseClaims reads a JWT access token without verifying it. The client has no
// key material; the server remains the authority on validity. Opaque tokens
// return an error.
func ParseClaims(accessToken string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &rc); err != nil {
		return Claims{}, err
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
