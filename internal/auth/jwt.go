package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	// RoleOperator may record events and rebuild snapshots.
	RoleOperator Role = "operator"
	// RoleViewer may only read orders and their events.
	RoleViewer Role = "viewer"
)

func (r Role) IsValid() bool {
	return r == RoleOperator || r == RoleViewer
}

func (r Role) CanWrite() bool {
	return r == RoleOperator
}

const issuer = "order-replay"

type Claims struct {
	Subject string
	Role    Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

var ErrInvalidRole = errors.New("invalid role")

func GenerateToken(subject string, role Role, secret string, expiry time.Duration) (string, error) {
	if !role.IsValid() {
		return "", fmt.Errorf("GenerateToken: %w: %q", ErrInvalidRole, role)
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	if tc.Subject == "" {
		return nil, fmt.Errorf("ValidateToken: missing subject")
	}
	role := Role(tc.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("ValidateToken: %w: %q", ErrInvalidRole, tc.Role)
	}

	return &Claims{Subject: tc.Subject, Role: role}, nil
}
