package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// BackendConfig configures the outbound generation backend
type BackendConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	// UploadTimeout bounds multipart PDF uploads, which can carry
	// multi-megabyte payloads
	UploadTimeout  time.Duration `toml:"upload_timeout"`
	RatePerSecond  float64       `toml:"rate_per_second"`
	RateBurst      int           `toml:"rate_burst"`
}

// ChatConfig tunes the streaming session manager
type ChatConfig struct {
	FragmentBuffer int `toml:"fragment_buffer"` // Buffered fragments per session before backpressure
	SendQueueLimit int `toml:"send_queue_limit"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns a config with working defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/lectio",
			},
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:5000",
			RequestTimeout: 30 * time.Second,
			UploadTimeout:  2 * time.Minute,
			RatePerSecond:  2,
			RateBurst:      4,
		},
		Chat: ChatConfig{
			FragmentBuffer: 64,
			SendQueueLimit: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig loads configuration from a TOML file, applying defaults
// for missing values and environment overrides on top. An empty path
// returns defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LECTIO_BACKEND_URL"); v != "" {
		config.Backend.BaseURL = v
	}
	if v := os.Getenv("LECTIO_DATA_DIR"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("LECTIO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
