package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StorageFile  = "file"
	StorageMongo = "mongo"

	DefaultAPIURL        = "http://localhost:8000/api"
	DefaultHTTPTimeout   = 600 * time.Second
	DefaultListenAddr    = ":8080"
	DefaultMongoDatabase = "meowwchat"
)

type Config struct {
	APIURL           string
	Storage          string
	MongoURI         string
	MongoDatabase    string
	DataDir          string
	BufferedDecoding bool
	HTTPTimeout      time.Duration
	ListenAddr       string
	logger           *zap.Logger
}

var (
	configInstance *Config
	once           sync.Once
)

// InitConfig loads the configuration once per process: .env first, then
// the YAML file, then MEOWWCHAT_* environment variables.
func InitConfig(logger *zap.Logger) (*Config, error) {
	var initErr error

	once.Do(func() {
		// Load .env file
		if err := godotenv.Load(); err != nil {
			if os.IsNotExist(err) {
				logger.Debug("No .env file found; falling back to system environment variables")
			} else {
				initErr = fmt.Errorf("failed to load .env file: %w", err)
				logger.Error("Config file load error", zap.Error(err))
				return
			}
		} else {
			logger.Debug("Successfully loaded .env file")
		}

		configInstance, initErr = Load(DefaultFilePath(), logger)
	})

	if initErr != nil {
		return nil, initErr
	}
	if configInstance == nil {
		return nil, fmt.Errorf("configuration initialization failed unexpectedly")
	}

	return configInstance, nil
}

// Load builds a Config from defaults, the YAML file at path (if any) and the
// environment. It does not touch .env.
func Load(path string, logger *zap.Logger) (*Config, error) {
	c := &Config{
		APIURL:        DefaultAPIURL,
		Storage:       StorageFile,
		MongoDatabase: DefaultMongoDatabase,
		DataDir:       filepath.Join(os.Getenv("HOME"), ".meowwchat"),
		HTTPTimeout:   DefaultHTTPTimeout,
		ListenAddr:    DefaultListenAddr,
		logger:        logger,
	}

	file, err := LoadFile(path, logger)
	if err != nil {
		return nil, err
	}
	if err := c.applyFile(file); err != nil {
		return nil, err
	}
	if err := c.applyEnvironment(); err != nil {
		return nil, err
	}

	c.DataDir = expandHome(c.DataDir)
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	if err := c.validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded",
		zap.String("api_url", c.APIURL),
		zap.String("storage", c.Storage),
		zap.String("mongo_uri", maskKey(c.MongoURI)),
		zap.String("data_dir", c.DataDir),
		zap.Bool("buffered_decoding", c.BufferedDecoding),
		zap.Duration("http_timeout", c.HTTPTimeout))
	return c, nil
}

func (c *Config) applyFile(file *FileConfig) error {
	values := map[string]string{
		"api_url":        file.APIURL,
		"storage":        file.Storage,
		"mongo_uri":      file.MongoURI,
		"mongo_database": file.MongoDatabase,
		"data_dir":       file.DataDir,
		"http_timeout":   file.HTTPTimeout,
		"listen_addr":    file.ListenAddr,
	}
	for key, value := range values {
		if value == "" {
			delete(values, key)
		}
	}

	resolved, err := c.ResolveConfiguration(values)
	if err != nil {
		return err
	}

	if v, ok := resolved["api_url"]; ok {
		c.APIURL = v
	}
	if v, ok := resolved["storage"]; ok {
		c.Storage = v
	}
	if v, ok := resolved["mongo_uri"]; ok {
		c.MongoURI = v
	}
	if v, ok := resolved["mongo_database"]; ok {
		c.MongoDatabase = v
	}
	if v, ok := resolved["data_dir"]; ok {
		c.DataDir = v
	}
	if v, ok := resolved["listen_addr"]; ok {
		c.ListenAddr = v
	}
	if v, ok := resolved["http_timeout"]; ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid http_timeout %q: %w", v, err)
		}
		c.HTTPTimeout = timeout
	}
	if file.BufferedDecoding != nil {
		c.BufferedDecoding = *file.BufferedDecoding
	}
	return nil
}

func (c *Config) applyEnvironment() error {
	if v := os.Getenv("MEOWWCHAT_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("MEOWWCHAT_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("MEOWWCHAT_MONGO_DATABASE"); v != "" {
		c.MongoDatabase = v
	}
	if v := os.Getenv("MEOWWCHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MEOWWCHAT_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MEOWWCHAT_BUFFERED_DECODING"); v != "" {
		buffered, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MEOWWCHAT_BUFFERED_DECODING %q: %w", v, err)
		}
		c.BufferedDecoding = buffered
	}
	if v := os.Getenv("MEOWWCHAT_HTTP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MEOWWCHAT_HTTP_TIMEOUT %q: %w", v, err)
		}
		c.HTTPTimeout = timeout
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageFile:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("storage %q requires MONGO_URI", StorageMongo)
		}
	default:
		return fmt.Errorf("unknown storage %q, expected %q or %q", c.Storage, StorageFile, StorageMongo)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// SessionPath is where the file session repository keeps the login.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

func (c *Config) ResolveEnvironmentVariable(value string) (string, error) {
	const prefix, suffix = "#{", "}#"
	if strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix) {
		varName := strings.TrimSuffix(strings.TrimPrefix(value, prefix), suffix)
		if varName == "" {
			return "", fmt.Errorf("empty variable name in reference: %s", value)
		}

		resolved := os.Getenv(varName)
		if resolved == "" {
			c.logger.Warn("Environment variable not found for reference",
				zap.String("reference", value),
				zap.String("var_name", varName))
			return "", fmt.Errorf("environment variable '%s' not found", varName)
		}

		c.logger.Debug("Resolved environment variable",
			zap.String("var_name", varName),
			zap.String("resolved", maskKey(resolved)))
		return resolved, nil
	}

	return value, nil
}

func (c *Config) ResolveConfiguration(config map[string]string) (map[string]string, error) {
	resolvedConfig := make(map[string]string)
	for key, value := range config {
		resolvedValue, err := c.ResolveEnvironmentVariable(value)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve configuration for key '%s': %w", key, err)
		}
		resolvedConfig[key] = resolvedValue
	}
	return resolvedConfig, nil
}

func expandHome(path string) string {
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return path
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
