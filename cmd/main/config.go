package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"

	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/storage"
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	ApiAddr            string `json:"api_addr"`
	LogLevel           string `json:"log_level"`
	GenLength          int    `json:"gen_length"`
	MaxGenLength       int    `json:"max_gen_length"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec"`
	IngestConcurrency  int    `json:"ingest_concurrency"`

	// GenRateLimit is the number of /gen requests allowed per client IP per
	// minute. Zero disables the limit.
	GenRateLimit   int      `json:"gen_rate_limit"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// SupervisorConfig holds the restart policy for supervised services.
type SupervisorConfig struct {
	FailureThreshold  float64 `json:"failure_threshold"`
	FailureDecaySec   float64 `json:"failure_decay_sec"`
	FailureBackoffSec int     `json:"failure_backoff_sec"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server     *ServerConfig     `json:"server_config"`
	Storage    *storage.Config   `json:"storage_config"`
	Collector  *collector.Config `json:"collector_config"`
	Supervisor *SupervisorConfig `json:"supervisor_config"`
	Auth       *AuthConfig       `json:"auth_config,omitempty"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:            "127.0.0.1:6767",
		LogLevel:           "info",
		GenLength:          16,
		MaxGenLength:       64,
		ShutdownTimeoutSec: 10,
		IngestConcurrency:  8,
		GenRateLimit:       600,
		AllowedOrigins:     []string{"*"},
	}
}

// DefaultSupervisorConfig mirrors suture's own defaults.
func DefaultSupervisorConfig() *SupervisorConfig {
	return &SupervisorConfig{
		FailureThreshold:  5,
		FailureDecaySec:   30,
		FailureBackoffSec: 15,
	}
}

// DefaultConfig returns a full configuration with every section set to its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Storage:    storage.DefaultConfig(),
		Collector:  collector.DefaultConfig(),
		Supervisor: DefaultSupervisorConfig(),
		Auth:       &AuthConfig{Keys: []APIKey{}},
	}
}

// ShutdownTimeout returns the configured grace period for stopping services.
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// validate fills sections left out of the file and rejects unusable values.
func (c *Config) validate() error {
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
	if c.Storage == nil {
		c.Storage = storage.DefaultConfig()
	}
	if c.Collector == nil {
		c.Collector = collector.DefaultConfig()
	}
	if c.Supervisor == nil {
		c.Supervisor = DefaultSupervisorConfig()
	}
	if c.Auth == nil {
		c.Auth = &AuthConfig{Keys: []APIKey{}}
	}
	if c.Server.GenLength < 0 {
		return fmt.Errorf("gen_length must not be negative, got %d", c.Server.GenLength)
	}
	if c.Server.GenRateLimit < 0 {
		return fmt.Errorf("gen_rate_limit must not be negative, got %d", c.Server.GenRateLimit)
	}
	if c.Server.MaxGenLength < c.Server.GenLength {
		return fmt.Errorf("max_gen_length (%d) is below gen_length (%d)", c.Server.MaxGenLength, c.Server.GenLength)
	}
	if c.Collector.Enabled && c.Collector.Command == "" {
		return fmt.Errorf("collector is enabled but has no command")
	}
	return nil
}

// ConfigManager handles thread-safe access to the configuration.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetLogger sets the logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Update validates the configuration, saves it to disk and makes it current.
// Most settings only take effect after a restart.
func (cm *ConfigManager) Update(newConfig Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.save(newConfig)
}

// UpdateSettings is Update with the current API keys carried over, whatever
// newConfig holds.
func (cm *ConfigManager) UpdateSettings(newConfig Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	newConfig.Auth = cm.config.Auth
	return cm.save(newConfig)
}

// UpdateAuth replaces only the API keys.
func (cm *ConfigManager) UpdateAuth(auth *AuthConfig) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	newConfig := *cm.config
	newConfig.Auth = auth
	return cm.save(newConfig)
}

// save must be called with cm.mu held.
func (cm *ConfigManager) save(newConfig Config) error {
	if err := newConfig.validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&newConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	*cm.config = newConfig
	cm.logger.Info("Configuration updated and saved. Some changes may require a restart.")
	return nil
}
