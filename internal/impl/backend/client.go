package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userAgent = "meowwchat/1.0.0"

// Client talks to the chat backend's REST API. It implements both
// interfaces.ThreadAPI and interfaces.AuthAPI.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) ListThreads(ctx context.Context, token string) ([]*entities.Thread, error) {
	var threads []*entities.Thread
	if err := c.getJSON(ctx, token, "/threads", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (c *Client) GetThread(ctx context.Context, token, threadID string) (*entities.Thread, error) {
	var thread entities.Thread
	if err := c.getJSON(ctx, token, "/threads/"+url.PathEscape(threadID), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) GetMessages(ctx context.Context, token, threadID string) ([]entities.Message, error) {
	var messages []entities.Message
	if err := c.getJSON(ctx, token, "/threads/"+url.PathEscape(threadID)+"/chat", &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []entities.Message{}
	}
	return messages, nil
}

func (c *Client) CreateThread(ctx context.Context, token string, req *entities.NewThreadRequest) (*entities.CreateThreadResponse, error) {
	var created entities.CreateThreadResponse
	if err := c.postJSON(ctx, token, "/threads/new", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// StreamChat posts the prompt and hands back the still-open body so the
// caller can read fragments as they arrive. The client timeout still bounds
// the whole exchange.
func (c *Client) StreamChat(ctx context.Context, token, threadID string, chatReq *entities.ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/chat", token, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson, application/json, text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, c.failure(req, resp)
	}
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent || resp.ContentLength == 0 {
		resp.Body.Close()
		return nil, errs.EmptyResponseBodyErrorf("chat response for thread %s has no body (status %d)", threadID, resp.StatusCode)
	}

	c.logger.Debug("Chat stream opened", zap.String("thread_id", threadID), zap.Int("status_code", resp.StatusCode))
	return resp.Body, nil
}

// Login exchanges email and password for a session. The backend expects an
// OAuth2 password form where the email goes in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (*entities.Session, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/access-token", "", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session entities.Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	if session.TokenType == "" {
		session.TokenType = "Bearer"
	}
	return &session, nil
}

func (c *Client) Register(ctx context.Context, registerReq *entities.RegisterRequest) (*entities.User, error) {
	var user entities.User
	if err := c.postJSON(ctx, "", "/auth/register", registerReq, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*entities.User, error) {
	var user entities.User
	if err := c.getJSON(ctx, token, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, token, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, token, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.failure(req, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// failure turns a non-2xx response into a RequestFailedError, keeping the
// backend's detail message when it sent one.
func (c *Client) failure(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	detail := parseDetail(body)

	c.logger.Error("Backend request failed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Int("status_code", resp.StatusCode),
		zap.String("detail", detail))

	return &errs.RequestFailedError{StatusCode: resp.StatusCode, Detail: detail}
}

// parseDetail reads the "detail" field of an error body. It is either a
// plain message or a list of validation problems.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var message string
	if err := json.Unmarshal(envelope.Detail, &message); err == nil {
		return message
	}

	var problems []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &problems); err == nil && len(problems) > 0 {
		parts := make([]string, 0, len(problems))
		for _, p := range problems {
			if len(p.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", p.Loc[len(p.Loc)-1], p.Msg))
			} else {
				parts = append(parts, p.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(envelope.Detail)
}

var (
	_ interfaces.ThreadAPI = (*Client)(nil)
	_ interfaces.AuthAPI   = (*Client)(nil)
)
