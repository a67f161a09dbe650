// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAdmin    = "admin_auth"
	TokenTypeEventLog = "event_log"
)

var ErrInvalidToken = errors.New("invalid token")

// GenerateJWT signs claims with HS256.
func GenerateJWT(claims jwt.MapClaims, jwtSecret string) (string, error) {
	if jwtSecret == "" {
		return "", errors.New("JWT secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	if jwtSecret == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ValidateTokenType validates a token and requires its "type" claim.
func ValidateTokenType(tokenString, jwtSecret, tokenType string) (jwt.MapClaims, error) {
	claims, err := ValidateJWT(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}
	if t, _ := claims["type"].(string); t != tokenType {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidToken, t)
	}
	return claims, nil
}

// IssueAdminToken creates the token returned by a successful login.
func IssueAdminToken(jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	return GenerateJWT(jwt.MapClaims{
		"role": "admin",
		"type": TokenTypeAdmin,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}, jwtSecret)
}

// IssueLogToken creates the token a page presents to the debug log sink.
func IssueLogToken(jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	return GenerateJWT(jwt.MapClaims{
		"type": TokenTypeEventLog,
		"jti":  GenerateULID(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}, jwtSecret)
}
