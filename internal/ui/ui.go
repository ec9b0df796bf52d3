package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	apicontrollers "github.com/drujensen/meowwchat/internal/api/controllers"
	"github.com/drujensen/meowwchat/internal/api/websocket"
	"github.com/drujensen/meowwchat/internal/domain/services"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// UI is the local web gateway: a JSON API over the thread service, a
// websocket that pushes live transcripts and the metrics endpoint.
type UI struct {
	threadService services.ThreadService
	metrics       http.Handler
	logger        *zap.Logger
	hub           *websocket.TranscriptHub
}

func NewUI(threadService services.ThreadService, metrics http.Handler, logger *zap.Logger) *UI {
	return &UI{
		threadService: threadService,
		metrics:       metrics,
		logger:        logger,
		hub:           websocket.NewTranscriptHub(logger),
	}
}

// Echo builds the router. Sends started through it run on ctx.
func (u *UI) Echo(ctx context.Context) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			u.logger.Info("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("logger", u.logger)
			return next(c)
		}
	})

	threadController := apicontrollers.NewThreadController(ctx, u.logger, u.threadService)

	api := e.Group("/api")
	threadController.RegisterRoutes(api)

	// WebSocket endpoint for real-time updates
	e.GET("/ws", echo.WrapHandler(websocket.TranscriptHandler(u.hub, u.threadService, u.logger)))

	if u.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(u.metrics))
	}

	return e
}

// Run serves on addr until ctx is cancelled.
func (u *UI) Run(ctx context.Context, addr string) error {
	u.StartHub(ctx)

	e := u.Echo(ctx)
	errCh := make(chan error, 1)
	go func() {
		u.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	u.logger.Info("Shutting down HTTP server")
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartHub runs the websocket hub without the HTTP listener, for callers
// that serve Echo themselves.
func (u *UI) StartHub(ctx context.Context) {
	go u.hub.Run(ctx)
}
