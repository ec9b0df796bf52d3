package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"
)

// JsonSessionRepository keeps the login in a single JSON file readable only
// by the current user.
type JsonSessionRepository struct {
	filePath string
	mu       sync.Mutex
}

func NewJSONSessionRepository(filePath string) *JsonSessionRepository {
	return &JsonSessionRepository{filePath: filePath}
}

func (r *JsonSessionRepository) GetSession(ctx context.Context) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil, errs.NotFoundErrorf("no session stored")
	}
	if err != nil {
		return nil, errs.InternalErrorf("failed to read session.json: %v", err)
	}

	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errs.InternalErrorf("failed to unmarshal session.json: %v", err)
	}
	if session.AccessToken == "" {
		return nil, errs.NotFoundErrorf("no session stored")
	}

	return &session, nil
}

func (r *JsonSessionRepository) SaveSession(ctx context.Context, session *entities.Session) error {
	if session == nil || session.AccessToken == "" {
		return errs.ValidationErrorf("session has no access token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errs.InternalErrorf("failed to marshal session: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0700); err != nil {
		return errs.InternalErrorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(r.filePath, data, 0600); err != nil {
		return errs.InternalErrorf("failed to write session.json: %v", err)
	}

	return nil
}

func (r *JsonSessionRepository) DeleteSession(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.filePath); err != nil && !os.IsNotExist(err) {
		return errs.InternalErrorf("failed to remove session.json: %v", err)
	}
	return nil
}

var _ interfaces.SessionRepository = (*JsonSessionRepository)(nil)
