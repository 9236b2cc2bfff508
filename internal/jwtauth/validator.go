// Package jwtauth verifies HMAC-signed access tokens issued by the identity
// collaborator. Issuance (and password handling) is out of this service's
// hands entirely.
package jwtauth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"daycareplanner/internal/platform/middleware"
	"daycareplanner/pkg/domain"
)

// Validator checks token signatures and extracts the (user, role) pair.
type Validator struct {
	key []byte
}

func New(signingKey string) *Validator {
	return &Validator{key: []byte(signingKey)}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a bearer token. Expired or tampered
// tokens fail; so do tokens whose subject is not a UUID or whose role is
// unknown.
func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}

	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	if !domain.ValidRole(claims.Role) {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	return &middleware.JWTClaims{
		UserID: userID,
		Role:   domain.Role(claims.Role),
	}, nil
}
