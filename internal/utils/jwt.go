package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims mirrors the token the CMS issues: a numeric or string user id plus
// the standard registered claims.
type Claims struct {
	ID       interface{} `json:"id"`
	Username string      `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id claim as a string.
func (c *Claims) UserID() string {
	return Stringify(c.ID)
}

var ErrMissingSubject = errors.New("token has no user id")

// GenerateJWT signs an HS256 token for userID. Used by tooling and tests; the
// CMS issues production tokens.
func GenerateJWT(secret, userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT parses and validates a JWT token
func ParseJWT(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	if claims.UserID() == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}
