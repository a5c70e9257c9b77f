package hrfake

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type accessClaims struct {
	jwt.RegisteredClaims
	Generation int `json:"gen"`
}

// issueAccessToken must be called with s.lock held.
func (s *Server) issueAccessToken(emp *employee) (string, error) {
	now := s.nowTime()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   emp.profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Generation: s.tokenGen,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// issueRefreshToken must be called with s.lock held.
func (s *Server) issueRefreshToken(emp *employee) string {
	token := uuid.NewString()
	s.refreshTokens[token] = emp.profile.EmployeeID
	return token
}

// verifyAccessToken returns the employee a valid token belongs to.
// Must be called with s.lock held.
func (s *Server) verifyAccessToken(raw string) (*employee, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowTime),
	)
	if err != nil {
		return nil, err
	}
	if claims.Generation < s.tokenGen {
		return nil, errors.New("token expired")
	}
	emp, ok := s.employeeByProfileID(claims.Subject)
	if !ok {
		return nil, errors.New("unknown subject")
	}
	return emp, nil
}
