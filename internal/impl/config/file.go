package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML file. Empty fields keep the defaults and
// string values may reference the environment as #{VAR}#.
type FileConfig struct {
	APIURL           string `yaml:"api_url,omitempty"`
	Storage          string `yaml:"storage,omitempty"`
	MongoURI         string `yaml:"mongo_uri,omitempty"`
	MongoDatabase    string `yaml:"mongo_database,omitempty"`
	DataDir          string `yaml:"data_dir,omitempty"`
	BufferedDecoding *bool  `yaml:"buffered_decoding,omitempty"`
	HTTPTimeout      string `yaml:"http_timeout,omitempty"`
	ListenAddr       string `yaml:"listen_addr,omitempty"`
}

// DefaultFilePath returns ~/.config/meowwchat/config.yaml
func DefaultFilePath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "meowwchat", "config.yaml")
}

// DefaultFileConfig is what `config init` writes.
func DefaultFileConfig() *FileConfig {
	buffered := false
	return &FileConfig{
		APIURL:           DefaultAPIURL,
		Storage:          StorageFile,
		DataDir:          "~/.meowwchat",
		BufferedDecoding: &buffered,
		HTTPTimeout:      DefaultHTTPTimeout.String(),
		ListenAddr:       DefaultListenAddr,
	}
}

// LoadFile reads the YAML config. A missing file yields an empty FileConfig.
func LoadFile(path string, logger *zap.Logger) (*FileConfig, error) {
	config := &FileConfig{}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config file does not exist, using defaults", zap.String("path", path))
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logger.Debug("Loaded config file", zap.String("path", path))
	return config, nil
}

// SaveFile writes the YAML config, creating its directory.
func SaveFile(path string, config *FileConfig, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	logger.Debug("Saved config file", zap.String("path", path))
	return nil
}
