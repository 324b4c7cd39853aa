package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// GenerateToken creates a signed HS256 bearer token for the principal.
func GenerateToken(secret []byte, p Principal, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  p.ID,
		"role": string(p.Role),
		"exp":  time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken validates a bearer token and extracts the principal from its
// claims.
func ParseToken(secret []byte, tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, fmt.Errorf("missing sub claim")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return Principal{}, fmt.Errorf("missing role claim")
	}
	switch Role(role) {
	case RoleStudent, RoleStaff:
	default:
		return Principal{}, fmt.Errorf("unknown role %q", role)
	}

	return Principal{ID: sub, Role: Role(role)}, nil
}
