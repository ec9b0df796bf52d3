package interfaces

import (
	"context"

	"github.com/drujensen/meowwchat/internal/domain/entities"
)

type SessionRepository interface {
	// GetSession returns errs.NotFoundError when nobody is logged in.
	GetSession(ctx context.Context) (*entities.Session, error)
	SaveSession(ctx context.Context, session *entities.Session) error
	DeleteSession(ctx context.Context) error
}
