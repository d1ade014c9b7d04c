package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rentaudit/internal/models"
	"rentaudit/internal/utils"
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts the claims back into the caller identity.
func (c *Claims) Principal() (models.Principal, error) {
	id, err := utils.ParseSixID(c.ID)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid id claim: %w", err)
	}
	return models.Principal{ID: id, Email: c.Email, Name: c.Name, Role: c.Role}, nil
}

// GenerateJWT creates a signed token carrying the principal.
func GenerateJWT(p models.Principal, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    p.ID.String(),
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   p.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid JWT")
	}

	return claims, nil
}
