package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"
	"github.com/drujensen/meowwchat/internal/domain/transcript"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Send results reported to TranscriptMetrics.
const (
	SendResultOK            = "ok"
	SendResultRequestFailed = "request_failed"
	SendResultEmptyBody     = "empty_body"
	SendResultRefreshFailed = "refresh_failed"
	SendResultError         = "error"
)

const readBufferSize = 32 * 1024

// ThreadSession owns the live state of one open thread: the persisted
// history, the optimistic echo of the last prompt, the fragment currently
// streaming in and the running flag. At most one send is in flight.
type ThreadSession struct {
	threadID string
	api      interfaces.ThreadAPI
	creds    interfaces.CredentialSource
	metrics  interfaces.TranscriptMetrics
	buffered bool
	logger   *zap.Logger

	mu          sync.Mutex
	history     []entities.Message
	streaming   transcript.StreamingState
	echo        transcript.OptimisticEcho
	running     bool
	autoStarted bool
}

func NewThreadSession(
	threadID string,
	api interfaces.ThreadAPI,
	creds interfaces.CredentialSource,
	metrics interfaces.TranscriptMetrics,
	buffered bool,
	logger *zap.Logger,
) *ThreadSession {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ThreadSession{
		threadID: threadID,
		api:      api,
		creds:    creds,
		metrics:  metrics,
		buffered: buffered,
		logger:   logger.With(zap.String("thread_id", threadID)),
	}
}

func (s *ThreadSession) ThreadID() string {
	return s.threadID
}

func (s *ThreadSession) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ThreadSession) Streaming() *entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming.Current()
}

func (s *ThreadSession) Echo() *entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.echo.Current()
}

func (s *ThreadSession) History() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.CloneMessages(s.history)
}

// Transcript is the reconciled list to display: history, then echo, then
// the streaming fragment, one entry per distinct content.
func (s *ThreadSession) Transcript() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

func (s *ThreadSession) transcriptLocked() []entities.Message {
	return transcript.Reconcile(s.history, s.echo.Current(), s.streaming.Current())
}

func (s *ThreadSession) publish() {
	s.mu.Lock()
	messages := s.transcriptLocked()
	running := s.running
	s.mu.Unlock()
	events.PublishTranscriptEvent(s.threadID, messages, running)
}

// Open loads the thread metadata and its history concurrently.
func (s *ThreadSession) Open(ctx context.Context) (*entities.Thread, error) {
	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var thread *entities.Thread
	var history []entities.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		thread, err = s.api.GetThread(gctx, token, s.threadID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.api.GetMessages(gctx, token, s.threadID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.invalidateOnUnauthorized(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	s.history = history
	s.mu.Unlock()
	s.publish()

	return thread, nil
}

// Refresh re-fetches the persisted history.
func (s *ThreadSession) Refresh(ctx context.Context) error {
	history, err := s.fetchHistory(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.history = history
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *ThreadSession) fetchHistory(ctx context.Context) ([]entities.Message, error) {
	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.api.GetMessages(ctx, token, s.threadID)
	if err != nil {
		s.invalidateOnUnauthorized(ctx, err)
		return nil, err
	}
	return history, nil
}

// Submit shows content as an optimistic echo and sends it as the next
// prompt of the thread.
func (s *ThreadSession) Submit(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.ValidationErrorf("message content is required")
	}
	if !s.claim(content, true) {
		return s.rejected()
	}
	return s.run(ctx, content, false)
}

// SubmitAsync claims the session like Submit and returns once the send has
// started. The outcome is delivered on the returned channel.
func (s *ThreadSession) SubmitAsync(ctx context.Context, content string) (<-chan error, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.ValidationErrorf("message content is required")
	}
	if !s.claim(content, true) {
		return nil, s.rejected()
	}
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, content, false)
	}()
	return done, nil
}

// Send streams a reply for prompt without touching the echo. isNewChat asks
// the backend to answer the thread's opening prompt.
func (s *ThreadSession) Send(ctx context.Context, prompt string, isNewChat bool) error {
	if !s.claim("", false) {
		return s.rejected()
	}
	return s.run(ctx, prompt, isNewChat)
}

// AutoStart requests the first reply of a freshly created thread, whose
// history holds only the opening prompt. It fires at most once per session
// and reports whether it did. A send already in flight is rejected without
// using up the auto start.
func (s *ThreadSession) AutoStart(ctx context.Context) (bool, error) {
	fire, err := s.claimAutoStart()
	if !fire {
		return false, err
	}
	return true, s.run(ctx, "", true)
}

// AutoStartAsync claims the auto start like AutoStart and runs the send in
// the background. The channel is nil when nothing was started.
func (s *ThreadSession) AutoStartAsync(ctx context.Context) (<-chan error, error) {
	fire, err := s.claimAutoStart()
	if !fire {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, "", true)
	}()
	return done, nil
}

func (s *ThreadSession) claimAutoStart() (bool, error) {
	s.mu.Lock()
	if s.autoStarted || len(s.history) != 1 {
		s.mu.Unlock()
		return false, nil
	}
	if s.running {
		s.mu.Unlock()
		return false, s.rejected()
	}
	s.autoStarted = true
	s.running = true
	s.mu.Unlock()
	s.publish()
	return true, nil
}

func (s *ThreadSession) claim(echo string, setEcho bool) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	if setEcho {
		s.echo.Set(echo)
	}
	s.mu.Unlock()
	s.publish()
	return true
}

func (s *ThreadSession) rejected() error {
	s.metrics.SendRejected()
	return errs.AlreadyRunningErrorf("a reply is already streaming for thread %s", s.threadID)
}

func (s *ThreadSession) run(ctx context.Context, prompt string, isNewChat bool) error {
	s.metrics.SendStarted()
	result := SendResultError
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.publish()
		s.metrics.SendFinished(result)
	}()

	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		s.logger.Warn("Cannot send without credentials", zap.Error(err))
		return err
	}

	body, err := s.api.StreamChat(ctx, token, s.threadID, entities.NewChatRequest(prompt, isNewChat))
	if err != nil {
		if ctx.Err() != nil {
			return errs.CanceledErrorf("send to thread %s canceled: %v", s.threadID, ctx.Err())
		}
		var requestFailed *errs.RequestFailedError
		var emptyBody *errs.EmptyResponseBodyError
		switch {
		case errors.As(err, &requestFailed):
			result = SendResultRequestFailed
		case errors.As(err, &emptyBody):
			result = SendResultEmptyBody
		}
		s.invalidateOnUnauthorized(ctx, err)
		s.logger.Error("Failed to start chat stream", zap.Error(err))
		return err
	}
	defer body.Close()

	if err := s.consume(body); err != nil {
		if ctx.Err() != nil {
			return errs.CanceledErrorf("send to thread %s canceled: %v", s.threadID, ctx.Err())
		}
		s.logger.Error("Chat stream interrupted", zap.Error(err))
		return err
	}

	history, err := s.fetchHistory(ctx)
	if err != nil {
		result = SendResultRefreshFailed
		s.metrics.RefreshFailed()
		s.logger.Error("Failed to refresh history after stream", zap.Error(err))
		return errs.NewRefreshFailedError(s.threadID, err)
	}

	s.mu.Lock()
	s.history = history
	s.streaming.SetCurrent(nil)
	s.echo.Clear()
	s.mu.Unlock()

	result = SendResultOK
	return nil
}

// consume reads the body until EOF and applies each chunk as it arrives.
func (s *ThreadSession) consume(body io.Reader) error {
	decoder := transcript.NewLineDecoder(s.buffered)
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			s.apply(decoder.Decode(buf[:n]))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading chat stream: %w", readErr)
		}
	}
	s.apply(decoder.Flush())
	return nil
}

func (s *ThreadSession) apply(lines []string) {
	if len(lines) == 0 {
		return
	}
	chunk := transcript.ParseChunk(lines)
	s.metrics.FragmentsParsed(chunk.Parsed)
	s.metrics.LinesDropped(len(chunk.Dropped))
	for _, err := range chunk.Dropped {
		s.logger.Debug("Dropped stream line", zap.Error(err))
	}
	if chunk.Fragment == nil {
		return
	}

	s.mu.Lock()
	s.streaming.SetCurrent(chunk.Fragment)
	s.mu.Unlock()
	s.publish()
}

func (s *ThreadSession) invalidateOnUnauthorized(ctx context.Context, err error) {
	if !errs.HasStatus(err, http.StatusUnauthorized) {
		return
	}
	if invErr := s.creds.Invalidate(ctx); invErr != nil {
		s.logger.Warn("Failed to clear rejected session", zap.Error(invErr))
	}
}

type nopMetrics struct{}

func (nopMetrics) SendStarted() {}
func (nopMetrics) SendFinished(string) {}
func (nopMetrics) SendRejected() {}
func (nopMetrics) FragmentsParsed(int) {}
func (nopMetrics) LinesDropped(int) {}
func (nopMetrics) RefreshFailed() {}
