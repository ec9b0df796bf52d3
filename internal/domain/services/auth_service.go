package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"

	"go.uber.org/zap"
)

const (
	minPasswordLength    = 6
	minDisplayNameLength = 2
)

// AuthService logs users in and out and hands the stored access token to
// everything that talks to the backend.
type AuthService interface {
	interfaces.CredentialSource
	Login(ctx context.Context, email, password string) (*entities.Session, error)
	Register(ctx context.Context, displayName, email, password string) (*entities.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*entities.User, error)
	IsAuthenticated(ctx context.Context) bool
}

type authService struct {
	api         interfaces.AuthAPI
	sessionRepo interfaces.SessionRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(api interfaces.AuthAPI, sessionRepo interfaces.SessionRepository, logger *zap.Logger) *authService {
	return &authService{
		api:         api,
		sessionRepo: sessionRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*entities.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.ValidationErrorf("email is required")
	}
	if password == "" {
		return nil, errs.ValidationErrorf("password is required")
	}

	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		if errs.HasStatus(err, http.StatusUnauthorized) || errs.HasStatus(err, http.StatusBadRequest) {
			return nil, errs.UnauthorizedErrorf("invalid email or password")
		}
		return nil, err
	}

	session.SavedAt = s.now()
	if err := s.sessionRepo.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Logged in", zap.String("email", email))
	return session, nil
}

func (s *authService) Register(ctx context.Context, displayName, email, password string) (*entities.User, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)

	if len([]rune(displayName)) < minDisplayNameLength {
		return nil, errs.ValidationErrorf("display name must be at least %d characters", minDisplayNameLength)
	}
	if !strings.Contains(email, "@") {
		return nil, errs.ValidationErrorf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, errs.ValidationErrorf("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.api.Register(ctx, &entities.RegisterRequest{
		DisplayName: displayName,
		Email:       email,
		Password:    password,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Registered user", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) Logout(ctx context.Context) error {
	if err := s.sessionRepo.DeleteSession(ctx); err != nil {
		return err
	}
	s.logger.Info("Logged out")
	return nil
}

func (s *authService) CurrentUser(ctx context.Context) (*entities.User, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		if errs.HasStatus(err, http.StatusUnauthorized) {
			if invErr := s.Invalidate(ctx); invErr != nil {
				s.logger.Warn("Failed to clear rejected session", zap.Error(invErr))
			}
			return nil, errs.UnauthorizedErrorf("session was rejected, please log in again")
		}
		return nil, err
	}

	return user, nil
}

func (s *authService) IsAuthenticated(ctx context.Context) bool {
	_, err := s.AccessToken(ctx)
	return err == nil
}

// AccessToken returns the stored token, or UnauthorizedError when nobody is
// logged in or the token has expired.
func (s *authService) AccessToken(ctx context.Context) (string, error) {
	session, err := s.sessionRepo.GetSession(ctx)
	if err != nil {
		var notFound *errs.NotFoundError
		if errors.As(err, &notFound) {
			return "", errs.UnauthorizedErrorf("not logged in")
		}
		return "", err
	}

	if session.AccessToken == "" {
		return "", errs.UnauthorizedErrorf("not logged in")
	}
	if session.Expired(s.now()) {
		return "", errs.UnauthorizedErrorf("session expired, please log in again")
	}

	return session.AccessToken, nil
}

func (s *authService) Invalidate(ctx context.Context) error {
	s.logger.Warn("Backend rejected the access token, clearing session")
	return s.sessionRepo.DeleteSession(ctx)
}

var _ AuthService = (*authService)(nil)
