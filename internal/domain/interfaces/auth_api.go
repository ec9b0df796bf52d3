package interfaces

import (
	"context"

	"github.com/drujensen/meowwchat/internal/domain/entities"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*entities.Session, error)
	Register(ctx context.Context, req *entities.RegisterRequest) (*entities.User, error)
	CurrentUser(ctx context.Context, token string) (*entities.User, error)
}
