package apicontrollers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ThreadController struct {
	// sends outlive the request that started them, so they run on ctx
	ctx           context.Context
	logger        *zap.Logger
	threadService services.ThreadService
	now           func() time.Time
}

func NewThreadController(ctx context.Context, logger *zap.Logger, threadService services.ThreadService) *ThreadController {
	return &ThreadController{
		ctx:           ctx,
		logger:        logger,
		threadService: threadService,
		now:           time.Now,
	}
}

// RegisterRoutes registers all thread-related routes with Echo
func (c *ThreadController) RegisterRoutes(e *echo.Group) {
	e.GET("/threads", c.ListThreads)
	e.POST("/threads", c.CreateThread)
	e.GET("/threads/:id", c.GetThread)
	e.POST("/threads/:id/messages", c.SendMessage)
}

// PromptRequest is the body of CreateThread and SendMessage.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// ThreadResponse is an open thread as the gateway serves it.
type ThreadResponse struct {
	Thread   *entities.Thread   `json:"thread"`
	Messages []entities.Message `json:"messages"`
	Running  bool               `json:"running"`
}

// SendAcceptedResponse acknowledges a send that continues in the background.
type SendAcceptedResponse struct {
	ThreadID string `json:"thread_id"`
	Running  bool   `json:"running"`
}

// ListThreads returns the user's threads grouped by age.
func (c *ThreadController) ListThreads(ctx echo.Context) error {
	groups, err := c.threadService.GroupedThreads(ctx.Request().Context(), c.now())
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (c *ThreadController) CreateThread(ctx echo.Context) error {
	var input PromptRequest
	if err := ctx.Bind(&input); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	created, err := c.threadService.CreateThread(ctx.Request().Context(), input.Prompt)
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}

	return ctx.JSON(http.StatusCreated, created)
}

// GetThread loads the thread and answers with its reconciled transcript,
// including any reply still streaming.
func (c *ThreadController) GetThread(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return c.handleError(ctx, "Missing thread ID", http.StatusBadRequest)
	}

	session, err := c.threadService.Session(id)
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}

	thread, err := session.Open(ctx.Request().Context())
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}

	// a thread holding only its opening prompt gets its first reply now
	if done, err := session.AutoStartAsync(c.ctx); err != nil {
		c.logger.Debug("Auto start skipped", zap.String("thread_id", id), zap.Error(err))
	} else if done != nil {
		c.awaitSend(id, done)
	}

	return ctx.JSON(http.StatusOK, ThreadResponse{
		Thread:   thread,
		Messages: session.Transcript(),
		Running:  session.Running(),
	})
}

// SendMessage starts a send and returns without waiting for the reply.
// Progress is pushed over the websocket.
func (c *ThreadController) SendMessage(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return c.handleError(ctx, "Missing thread ID", http.StatusBadRequest)
	}

	var input PromptRequest
	if err := ctx.Bind(&input); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	session, err := c.threadService.Session(id)
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}

	done, err := session.SubmitAsync(c.ctx, input.Prompt)
	if err != nil {
		return c.handleError(ctx, err, statusFor(err))
	}

	c.awaitSend(id, done)

	return ctx.JSON(http.StatusAccepted, SendAcceptedResponse{ThreadID: id, Running: true})
}

func (c *ThreadController) awaitSend(threadID string, done <-chan error) {
	go func() {
		if err := <-done; err != nil {
			c.logger.Warn("Background send failed", zap.String("thread_id", threadID), zap.Error(err))
		}
	}()
}

// statusFor maps domain errors onto gateway status codes.
func statusFor(err error) int {
	var (
		validation     *errs.ValidationError
		notFound       *errs.NotFoundError
		unauthorized   *errs.UnauthorizedError
		alreadyRunning *errs.AlreadyRunningError
		requestFailed  *errs.RequestFailedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &alreadyRunning):
		return http.StatusConflict
	case errors.As(err, &requestFailed):
		switch requestFailed.StatusCode {
		case http.StatusUnauthorized, http.StatusNotFound:
			return requestFailed.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleError handles errors and returns them in a consistent format
func (c *ThreadController) handleError(ctx echo.Context, err any, statusCode int) error {
	message := err
	if e, ok := err.(error); ok {
		message = e.Error()
	}
	if statusCode >= http.StatusInternalServerError {
		c.logger.Error("Error occurred", zap.Any("error", message), zap.Int("status", statusCode))
	} else {
		c.logger.Debug("Request rejected", zap.Any("error", message), zap.Int("status", statusCode))
	}
	return ctx.JSON(statusCode, map[string]any{
		"error": message,
	})
}
