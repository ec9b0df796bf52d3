package interfaces

import (
	"context"
	"io"

	"github.com/drujensen/meowwchat/internal/domain/entities"
)

// ThreadAPI is the backend's thread and chat surface. Every call takes the
// bearer token explicitly.
type ThreadAPI interface {
	ListThreads(ctx context.Context, token string) ([]*entities.Thread, error)
	GetThread(ctx context.Context, token, threadID string) (*entities.Thread, error)
	CreateThread(ctx context.Context, token string, req *entities.NewThreadRequest) (*entities.CreateThreadResponse, error)
	GetMessages(ctx context.Context, token, threadID string) ([]entities.Message, error)

	// StreamChat posts a prompt and returns the open response body. The
	// caller must close it.
	StreamChat(ctx context.Context, token, threadID string, req *entities.ChatRequest) (io.ReadCloser, error)
}
