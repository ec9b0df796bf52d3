package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestAuthService() (*authService, *mockAuthAPI, *mockSessionRepository) {
	api := new(mockAuthAPI)
	repo := new(mockSessionRepository)
	service := NewAuthService(api, repo, zap.NewNop())
	service.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return service, api, repo
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the session", func(t *testing.T) {
		service, api, repo := newTestAuthService()
		session := &entities.Session{TokenType: "Bearer", AccessToken: "abc", ExpiresAt: 1_700_003_600}
		api.On("Login", ctx, "cat@example.com", "secret").Return(session, nil).Once()
		repo.On("SaveSession", ctx, mock.MatchedBy(func(s *entities.Session) bool {
			return s.AccessToken == "abc" && s.SavedAt.Equal(time.Unix(1_700_000_000, 0))
		})).Return(nil).Once()

		result, err := service.Login(ctx, " cat@example.com ", "secret")

		assert.NoError(t, err)
		assert.Equal(t, "abc", result.AccessToken)
		api.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("bad credentials", func(t *testing.T) {
		service, api, repo := newTestAuthService()
		api.On("Login", ctx, "cat@example.com", "wrong").Return(nil, errs.RequestFailedErrorf(400, "Incorrect email or password")).Once()

		result, err := service.Login(ctx, "cat@example.com", "wrong")

		assert.Nil(t, result)
		var unauthorized *errs.UnauthorizedError
		assert.True(t, errors.As(err, &unauthorized))
		repo.AssertNotCalled(t, "SaveSession", mock.Anything, mock.Anything)
	})

	t.Run("missing fields", func(t *testing.T) {
		service, api, _ := newTestAuthService()

		_, err := service.Login(ctx, "", "secret")
		assert.IsType(t, &errs.ValidationError{}, err)
		_, err = service.Login(ctx, "cat@example.com", "")
		assert.IsType(t, &errs.ValidationError{}, err)
		api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		displayName string
		email       string
		password    string
		wantValid   bool
	}{
		{name: "valid", displayName: "Tom", email: "tom@example.com", password: "meowmeow", wantValid: true},
		{name: "short display name", displayName: "T", email: "tom@example.com", password: "meowmeow"},
		{name: "email without at", displayName: "Tom", email: "tom.example.com", password: "meowmeow"},
		{name: "short password", displayName: "Tom", email: "tom@example.com", password: "meow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, api, _ := newTestAuthService()
			if tt.wantValid {
				api.On("Register", ctx, &entities.RegisterRequest{DisplayName: tt.displayName, Email: tt.email, Password: tt.password}).
					Return(&entities.User{ID: "u1", DisplayName: tt.displayName, Email: tt.email}, nil).Once()
			}

			user, err := service.Register(ctx, tt.displayName, tt.email, tt.password)

			if tt.wantValid {
				assert.NoError(t, err)
				assert.Equal(t, "u1", user.ID)
				api.AssertExpectations(t)
				return
			}
			assert.IsType(t, &errs.ValidationError{}, err)
			api.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_AccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("logged in", func(t *testing.T) {
		service, _, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(&entities.Session{AccessToken: "abc"}, nil).Once()

		token, err := service.AccessToken(ctx)

		assert.NoError(t, err)
		assert.Equal(t, "abc", token)
	})

	t.Run("nobody logged in", func(t *testing.T) {
		service, _, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(nil, errs.NotFoundErrorf("no session")).Once()

		_, err := service.AccessToken(ctx)

		assert.IsType(t, &errs.UnauthorizedError{}, err)
	})

	t.Run("expired", func(t *testing.T) {
		service, _, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(&entities.Session{AccessToken: "abc", ExpiresAt: 1_699_999_999}, nil)

		_, err := service.AccessToken(ctx)

		assert.IsType(t, &errs.UnauthorizedError{}, err)
		assert.False(t, service.IsAuthenticated(ctx))
	})

	t.Run("storage failure is passed through", func(t *testing.T) {
		service, _, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(nil, errs.InternalErrorf("disk on fire")).Once()

		_, err := service.AccessToken(ctx)

		assert.IsType(t, &errs.InternalError{}, err)
	})
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user", func(t *testing.T) {
		service, api, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(&entities.Session{AccessToken: "abc"}, nil)
		api.On("CurrentUser", ctx, "abc").Return(&entities.User{ID: "u1", DisplayName: "Tom"}, nil).Once()

		user, err := service.CurrentUser(ctx)

		assert.NoError(t, err)
		assert.Equal(t, "Tom", user.DisplayName)
	})

	t.Run("rejected token clears the session", func(t *testing.T) {
		service, api, repo := newTestAuthService()
		repo.On("GetSession", ctx).Return(&entities.Session{AccessToken: "abc"}, nil)
		repo.On("DeleteSession", ctx).Return(nil).Once()
		api.On("CurrentUser", ctx, "abc").Return(nil, errs.RequestFailedErrorf(401, "Could not validate credentials")).Once()

		_, err := service.CurrentUser(ctx)

		assert.IsType(t, &errs.UnauthorizedError{}, err)
		repo.AssertExpectations(t)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	service, _, repo := newTestAuthService()
	repo.On("DeleteSession", ctx).Return(nil).Once()

	assert.NoError(t, service.Logout(ctx))
	repo.AssertExpectations(t)
}
