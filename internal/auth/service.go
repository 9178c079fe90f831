package auth

import (
	"context"
	"log/slog"

	"github.com/veryfrut/storefront/internal/backend"
	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// Authenticator exchanges credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a successful login.
type Session struct {
	Token string          `json:"-"`
	User  domain.UserInfo `json:"user"`
	Home  string          `json:"home"`
}

// Service logs customers and admins in.
type Service struct {
	backend Authenticator
	decoder *Decoder
	logger  *slog.Logger
}

// NewService creates a login service backed by backend.
func NewService(backend Authenticator, decoder *Decoder, logger *slog.Logger) *Service {
	return &Service{backend: backend, decoder: decoder, logger: logger}
}

// Login authenticates against the backend. The role comes from the user
// record, falling back to the token's role claim.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	res, err := s.backend.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	info := res.User.Info()
	if !info.Role.Valid() {
		claims, err := s.decoder.Decode(res.Token)
		if err != nil {
			s.logger.WarnContext(ctx, "backend issued an undecodable token", slog.String("error", err.Error()))
			return nil, apperrors.Unauthorized("login rejected")
		}
		info.Role = domain.Role(claims.Role)
	}
	if !info.Role.Valid() {
		return nil, apperrors.Forbidden("account has no storefront role")
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.Int("user_id", info.ID),
		slog.String("role", string(info.Role)),
	)
	return &Session{Token: res.Token, User: info, Home: info.Role.HomePath()}, nil
}
