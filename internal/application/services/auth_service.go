package services

import (
	"fmt"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
)

// AuthService handles admin authentication and JWT operations.
type AuthService struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
	logger       *logging.ChanneledLogger
}

// NewAuthService creates a new authentication service.
func NewAuthService(passwordHash, jwtSecret string, tokenTTL time.Duration, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}

// AuthenticateAdmin checks password against the configured bcrypt hash and
// issues an admin token.
func (a *AuthService) AuthenticateAdmin(password string) (*AuthResult, error) {
	if a.passwordHash == "" || a.jwtSecret == "" {
		a.logger.Auth().Warn("Admin login attempted without ADMIN_PASSWORD_HASH or JWT_SECRET configured")
		return nil, ErrUnauthorized
	}
	if !security.CheckPassword(a.passwordHash, password) {
		a.logger.Auth().Info("Admin login rejected")
		return nil, ErrUnauthorized
	}

	token, err := security.IssueAdminToken(a.jwtSecret, a.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue admin token: %w", err)
	}
	a.logger.Auth().Info("Admin login succeeded")
	return &AuthResult{
		Token:     token,
		Role:      "admin",
		ExpiresAt: time.Now().Add(a.tokenTTL).Unix(),
	}, nil
}

// ValidateAdminToken checks that a token belongs to an admin.
func (a *AuthService) ValidateAdminToken(tokenString string) error {
	if tokenString == "" {
		return ErrUnauthorized
	}
	claims, err := security.ValidateTokenType(tokenString, a.jwtSecret, security.TokenTypeAdmin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return ErrUnauthorized
	}
	return nil
}
