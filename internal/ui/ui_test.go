package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drujensen/meowwchat/internal/api/websocket"
	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/services"
	"github.com/drujensen/meowwchat/internal/impl/metrics"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCreds struct{}

func (staticCreds) AccessToken(ctx context.Context) (string, error) { return "token", nil }
func (staticCreds) Invalidate(ctx context.Context) error             { return nil }

// stubThreadAPI answers from fixed data. StreamChat holds the reply until
// release is closed.
type stubThreadAPI struct {
	threads []*entities.Thread
	history []entities.Message
	getErr  error
	release chan struct{}

	once     sync.Once
	mu       sync.Mutex
	requests []entities.ChatRequest
}

func (s *stubThreadAPI) unblock() {
	s.once.Do(func() { close(s.release) })
}

func (s *stubThreadAPI) chatRequests() []entities.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ChatRequest(nil), s.requests...)
}

func (s *stubThreadAPI) ListThreads(ctx context.Context, token string) ([]*entities.Thread, error) {
	return s.threads, nil
}

func (s *stubThreadAPI) GetThread(ctx context.Context, token, threadID string) (*entities.Thread, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &entities.Thread{ID: threadID, Name: "Cats"}, nil
}

func (s *stubThreadAPI) CreateThread(ctx context.Context, token string, req *entities.NewThreadRequest) (*entities.CreateThreadResponse, error) {
	return &entities.CreateThreadResponse{ThreadID: "created", ChatHistory: []entities.Message{{Role: "user", Content: req.Prompt}}}, nil
}

func (s *stubThreadAPI) GetMessages(ctx context.Context, token, threadID string) ([]entities.Message, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.history, nil
}

func (s *stubThreadAPI) StreamChat(ctx context.Context, token, threadID string, req *entities.ChatRequest) (io.ReadCloser, error) {
	s.mu.Lock()
	s.requests = append(s.requests, *req)
	s.mu.Unlock()

	pr, pw := io.Pipe()
	go func() {
		<-s.release
		pw.Write([]byte(`{"role":"model","content":"purr"}`))
		pw.Close()
	}()
	return pr, nil
}

type gateway struct {
	api     *stubThreadAPI
	threads services.ThreadService
	ui      *UI
	echo    *echo.Echo
}

func newGateway(t *testing.T, api *stubThreadAPI) *gateway {
	t.Helper()
	if api.release == nil {
		api.release = make(chan struct{})
	}
	t.Cleanup(api.unblock)
	m := metrics.NewTranscriptMetrics()
	threads := services.NewThreadService(api, staticCreds{}, m, false, zap.NewNop())
	ui := NewUI(threads, m.Handler(), zap.NewNop())
	return &gateway{api: api, threads: threads, ui: ui, echo: ui.Echo(context.Background())}
}

func (g *gateway) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	g.echo.ServeHTTP(rec, req)
	return rec
}

func TestGateway_ListThreadsGrouped(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{threads: []*entities.Thread{
		{ID: "a", Name: "Fresh", CreateTime: entities.NewTimestamp(time.Now())},
	}})

	rec := g.do(http.MethodGet, "/api/threads", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var groups []entities.ThreadGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 4)
	assert.Equal(t, entities.ThreadGroupToday, groups[0].Key)
	require.Len(t, groups[0].Threads, 1)
	assert.Equal(t, "a", groups[0].Threads[0].ID)
}

func TestGateway_CreateThread(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{})

	rec := g.do(http.MethodPost, "/api/threads", `{"prompt":"  hello  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"thread_id":"created"`)
	assert.Contains(t, rec.Body.String(), `"content":"hello"`)

	rec = g.do(http.MethodPost, "/api/threads", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_GetThread(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{history: []entities.Message{
		{ID: "1", Role: "user", Content: "hi"},
		{ID: "2", Role: "model", Content: "meow"},
	}})

	rec := g.do(http.MethodGet, "/api/threads/t1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Thread   entities.Thread    `json:"thread"`
		Messages []entities.Message `json:"messages"`
		Running  bool               `json:"running"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Cats", body.Thread.Name)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hi", body.Messages[0].Content)
	assert.Equal(t, "assistant", body.Messages[1].DisplayRole())
	assert.False(t, body.Running)
	assert.Empty(t, g.api.chatRequests())
}

func TestGateway_GetThreadAutoStartsFreshThread(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{history: []entities.Message{{ID: "1", Role: "user", Content: "tell me about cats"}}})

	rec := g.do(http.MethodGet, "/api/threads/fresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)

	rec = g.do(http.MethodGet, "/api/threads/fresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	g.api.unblock()
	session, err := g.threads.Session("fresh")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !session.Running() }, 2*time.Second, 10*time.Millisecond)

	requests := g.api.chatRequests()
	require.Len(t, requests, 1, "auto start fires once per thread")
	assert.True(t, requests[0].IsNewChat)
	assert.Empty(t, requests[0].Prompt)
}

func TestGateway_GetThreadMapsBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errs.RequestFailedErrorf(http.StatusNotFound, "Thread not found"), http.StatusNotFound},
		{"unauthorized", errs.RequestFailedErrorf(http.StatusUnauthorized, "expired"), http.StatusUnauthorized},
		{"backend failure", errs.RequestFailedErrorf(http.StatusInternalServerError, "boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, &stubThreadAPI{getErr: tt.err})
			rec := g.do(http.MethodGet, "/api/threads/t1", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGateway_SendMessageRunsInBackground(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{history: []entities.Message{{ID: "1", Role: "user", Content: "hi"}}})

	rec := g.do(http.MethodPost, "/api/threads/t1/messages", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"thread_id":"t1","running":true}`, rec.Body.String())

	rec = g.do(http.MethodPost, "/api/threads/t1/messages", `{"prompt":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = g.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meowwchat_sends_in_flight 1")
	assert.Contains(t, rec.Body.String(), `meowwchat_sends_total{result="already_running"} 1`)

	g.api.unblock()
	session, err := g.threads.Session("t1")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !session.Running() }, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_SendMessageValidation(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{})

	rec := g.do(http.MethodPost, "/api/threads/t1/messages", `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.do(http.MethodPost, "/api/threads/t1/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_WebsocketPushesTranscripts(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.ui.StartHub(ctx)

	server := httptest.NewServer(g.echo)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?thread_id=ws-thread"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frame websocket.TranscriptFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "transcript", frame.Type)
	assert.Equal(t, "ws-thread", frame.ThreadID)
	assert.Empty(t, frame.Messages)

	events.PublishTranscriptEvent("other-thread", []entities.Message{{Role: "user", Content: "elsewhere"}}, false)
	events.PublishTranscriptEvent("ws-thread", []entities.Message{{Role: "model", Content: "meow"}}, true)

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ws-thread", frame.ThreadID)
	assert.True(t, frame.Running)
	require.Len(t, frame.Messages, 1)
	assert.Equal(t, "meow", frame.Messages[0].Content)
}

func TestGateway_WebsocketRequiresThreadID(t *testing.T) {
	g := newGateway(t, &stubThreadAPI{})

	rec := g.do(http.MethodGet, "/ws", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
