package services

import (
	"context"
	"io"
	"sync"

	"github.com/drujensen/meowwchat/internal/domain/entities"

	"github.com/stretchr/testify/mock"
)

type mockThreadAPI struct {
	mock.Mock
}

func (m *mockThreadAPI) ListThreads(ctx context.Context, token string) ([]*entities.Thread, error) {
	args := m.Called(ctx, token)
	if args.Get(0) != nil {
		return args.Get(0).([]*entities.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadAPI) GetThread(ctx context.Context, token, threadID string) (*entities.Thread, error) {
	args := m.Called(ctx, token, threadID)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadAPI) CreateThread(ctx context.Context, token string, req *entities.NewThreadRequest) (*entities.CreateThreadResponse, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.CreateThreadResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadAPI) GetMessages(ctx context.Context, token, threadID string) ([]entities.Message, error) {
	args := m.Called(ctx, token, threadID)
	if args.Get(0) != nil {
		return args.Get(0).([]entities.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadAPI) StreamChat(ctx context.Context, token, threadID string, req *entities.ChatRequest) (io.ReadCloser, error) {
	args := m.Called(ctx, token, threadID, req)
	if args.Get(0) != nil {
		return args.Get(0).(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCredentialSource struct {
	mock.Mock
}

func (m *mockCredentialSource) AccessToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockCredentialSource) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Login(ctx context.Context, email, password string) (*entities.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthAPI) Register(ctx context.Context, req *entities.RegisterRequest) (*entities.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthAPI) CurrentUser(ctx context.Context, token string) (*entities.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) GetSession(ctx context.Context) (*entities.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) SaveSession(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) DeleteSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingMetrics keeps every observation for later assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	started  int
	finished []string
	rejected int
	parsed   int
	dropped  int
	refresh  int
}

func (r *recordingMetrics) SendStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingMetrics) SendFinished(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, result)
}

func (r *recordingMetrics) SendRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *recordingMetrics) FragmentsParsed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsed += n
}

func (r *recordingMetrics) LinesDropped(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped += n
}

func (r *recordingMetrics) RefreshFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh++
}

// chunkedBody returns one chunk per Read, the way a streaming response
// arrives off the network. beforeRead runs ahead of chunk i, after every
// earlier chunk has been applied.
type chunkedBody struct {
	chunks     []string
	next       int
	beforeRead func(i int)
	closed     bool
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if b.next >= len(b.chunks) {
		return 0, io.EOF
	}
	if b.beforeRead != nil {
		b.beforeRead(b.next)
	}
	n := copy(p, b.chunks[b.next])
	b.next++
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

// failingBody fails its first Read, the way a response body does when the
// request context is cancelled.
type failingBody struct {
	err        error
	beforeFail func()
}

func (b *failingBody) Read(p []byte) (int, error) {
	if b.beforeFail != nil {
		b.beforeFail()
	}
	return 0, b.err
}

func (b *failingBody) Close() error {
	return nil
}
