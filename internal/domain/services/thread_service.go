package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"

	"go.uber.org/zap"
)

type ThreadService interface {
	ListThreads(ctx context.Context) ([]*entities.Thread, error)
	GroupedThreads(ctx context.Context, now time.Time) ([]entities.ThreadGroup, error)
	GetThread(ctx context.Context, id string) (*entities.Thread, error)
	CreateThread(ctx context.Context, prompt string) (*entities.CreateThreadResponse, error)

	// Session returns the live session of a thread, creating it on first use.
	// Every caller gets the same session for the same thread.
	Session(threadID string) (*ThreadSession, error)
}

type threadService struct {
	api      interfaces.ThreadAPI
	creds    interfaces.CredentialSource
	metrics  interfaces.TranscriptMetrics
	buffered bool
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*ThreadSession
}

func NewThreadService(
	api interfaces.ThreadAPI,
	creds interfaces.CredentialSource,
	metrics interfaces.TranscriptMetrics,
	buffered bool,
	logger *zap.Logger,
) *threadService {
	return &threadService{
		api:      api,
		creds:    creds,
		metrics:  metrics,
		buffered: buffered,
		logger:   logger,
		sessions: make(map[string]*ThreadSession),
	}
}

func (s *threadService) ListThreads(ctx context.Context) ([]*entities.Thread, error) {
	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	threads, err := s.api.ListThreads(ctx, token)
	if err != nil {
		// The backend answers 404 for a user without threads.
		if errs.HasStatus(err, http.StatusNotFound) {
			return []*entities.Thread{}, nil
		}
		if errs.HasStatus(err, http.StatusUnauthorized) {
			s.invalidate(ctx)
		}
		return nil, err
	}

	return threads, nil
}

func (s *threadService) GroupedThreads(ctx context.Context, now time.Time) ([]entities.ThreadGroup, error) {
	threads, err := s.ListThreads(ctx)
	if err != nil {
		return nil, err
	}
	return entities.GroupThreads(threads, now), nil
}

func (s *threadService) GetThread(ctx context.Context, id string) (*entities.Thread, error) {
	if id == "" {
		return nil, errs.ValidationErrorf("thread ID is required")
	}

	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	thread, err := s.api.GetThread(ctx, token, id)
	if err != nil {
		if errs.HasStatus(err, http.StatusNotFound) {
			return nil, errs.NotFoundErrorf("thread not found: %s", id)
		}
		if errs.HasStatus(err, http.StatusUnauthorized) {
			s.invalidate(ctx)
		}
		return nil, err
	}

	return thread, nil
}

func (s *threadService) CreateThread(ctx context.Context, prompt string) (*entities.CreateThreadResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errs.ValidationErrorf("prompt is required")
	}

	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.api.CreateThread(ctx, token, &entities.NewThreadRequest{
		Prompt:      prompt,
		Attachments: []any{},
	})
	if err != nil {
		if errs.HasStatus(err, http.StatusUnauthorized) {
			s.invalidate(ctx)
		}
		return nil, err
	}

	s.logger.Info("Created thread", zap.String("thread_id", created.ThreadID))
	events.PublishThreadsChangedEvent(created.ThreadID)
	return created, nil
}

func (s *threadService) Session(threadID string) (*ThreadSession, error) {
	if threadID == "" {
		return nil, errs.ValidationErrorf("thread ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[threadID]
	if !ok {
		session = NewThreadSession(threadID, s.api, s.creds, s.metrics, s.buffered, s.logger)
		s.sessions[threadID] = session
	}
	return session, nil
}

func (s *threadService) invalidate(ctx context.Context) {
	if err := s.creds.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to clear rejected session", zap.Error(err))
	}
}

var _ ThreadService = (*threadService)(nil)
