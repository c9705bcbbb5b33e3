package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"payment-reconciler/config"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService for the single configured
// back-office account.
type AuthServiceImpl struct {
	admin    config.AdminConfig
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

func NewAuthService(
	admin config.AdminConfig,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		admin:    admin,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if s.admin.Username == "" || s.admin.PasswordHash == "" {
		s.log.Warn().Msg("login attempted but no admin account is configured")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) != 1 {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, s.admin.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		s.log.Warn().Str("username", username).Msg("login rejected: wrong password")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("username", username).Time("expires_at", expiry).Msg("back-office login")
	return token, expiry, nil
}
