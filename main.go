package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drujensen/meowwchat/internal/domain/interfaces"
	"github.com/drujensen/meowwchat/internal/domain/services"
	"github.com/drujensen/meowwchat/internal/impl/backend"
	"github.com/drujensen/meowwchat/internal/impl/config"
	"github.com/drujensen/meowwchat/internal/impl/database"
	"github.com/drujensen/meowwchat/internal/impl/metrics"
	repositoriesJson "github.com/drujensen/meowwchat/internal/impl/repositories/json"
	repositoriesMongo "github.com/drujensen/meowwchat/internal/impl/repositories/mongo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "unknown" // This should be set during build with -ldflags="-X main.version=1.0.0"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
	cfg    *config.Config
)

// skipConfig marks commands that must run even when the configuration is
// invalid.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "meowwchat",
	Short: "Terminal client for Meoww Chat",
	Long: `meowwchat talks to a Meoww Chat backend: log in, browse your threads and
chat with streamed replies.

Run without arguments to start the terminal UI.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		if verbose {
			logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		if configPath != "" {
			cfg, err = config.Load(configPath, logger)
		} else {
			cfg, err = config.InitConfig(logger)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/meowwchat/config.yaml)")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app holds the services every command is built from.
type app struct {
	authService   services.AuthService
	threadService services.ThreadService
	metrics       *metrics.TranscriptMetrics
	closers       []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{metrics: metrics.NewTranscriptMetrics()}

	var sessionRepo interfaces.SessionRepository
	if cfg.Storage == config.StorageMongo {
		db, err := database.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, db.Disconnect)
		sessionRepo = repositoriesMongo.NewMongoSessionRepository(db.Collection("sessions"), repositoriesMongo.DefaultProfile)
	} else {
		sessionRepo = repositoriesJson.NewJSONSessionRepository(cfg.SessionPath())
	}

	client := backend.NewClient(cfg.APIURL, cfg.HTTPTimeout, logger)
	authService := services.NewAuthService(client, sessionRepo, logger)
	a.authService = authService
	a.threadService = services.NewThreadService(client, authService, a.metrics, cfg.BufferedDecoding, logger)

	logger.Debug("Services initialized",
		zap.String("api_url", cfg.APIURL),
		zap.String("storage", cfg.Storage))
	return a, nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(context.Background()); err != nil {
			logger.Warn("Failed to release resource", zap.Error(err))
		}
	}
}

// withApp builds the services for a command and releases them afterwards.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}
