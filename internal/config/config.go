package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the runner configuration
type Config struct {
	WorkflowDir string            `yaml:"workflow_dir"` // Directory holding workflow definition files
	Workspace   WorkspaceConfig   `yaml:"workspace"`
	Cache       CacheConfig       `yaml:"cache"`
	Store       StoreConfig       `yaml:"store"`
	Checkout    CheckoutConfig    `yaml:"checkout"`
	Toolchains  map[string]string `yaml:"toolchains,omitempty"` // toolkit name -> installer command template
	Daemon      DaemonConfig      `yaml:"daemon"`
	NATS        NATSConfig        `yaml:"nats"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WorkspaceConfig controls where jobs get their working directories.
type WorkspaceConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Remove job directories after a successful run
}

// CacheConfig controls the content-keyed dependency cache.
type CacheConfig struct {
	Directory string `yaml:"directory"`
	Enabled   *bool  `yaml:"enabled,omitempty"`
}

// StoreConfig controls run history persistence.
type StoreConfig struct {
	Path string `yaml:"path"` // sqlite file, ":memory:" for ephemeral
}

// CheckoutConfig carries defaults for the checkout step.
type CheckoutConfig struct {
	ShallowDepth int         `yaml:"shallow_depth,omitempty"`
	Retry        RetryConfig `yaml:"retry"`
	Auth         *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig represents git authentication configuration
type AuthConfig struct {
	Type     string `yaml:"type"` // "ssh", "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// RetryConfig holds raw retry knobs; retry.NewPolicy normalizes them.
type RetryConfig struct {
	Backoff    string `yaml:"backoff,omitempty"` // fixed|linear|exponential
	Initial    string `yaml:"initial,omitempty"` // duration string
	Max        string `yaml:"max,omitempty"`
	MaxRetries *int   `yaml:"max_retries,omitempty"` // nil means default; 0 disables retries
}

// DaemonConfig controls continuous mode.
type DaemonConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	Workers    int              `yaml:"workers"`
	QueueSize  int              `yaml:"queue_size"`
	Watch      bool             `yaml:"watch"` // re-run workflows when their files change
	Schedules  []ScheduleConfig `yaml:"schedules,omitempty"`
}

// ScheduleConfig maps a workflow file to a periodic trigger.
type ScheduleConfig struct {
	Workflow string `yaml:"workflow"` // path relative to workflow_dir
	Every    string `yaml:"every"`    // interval duration string
	Branch   string `yaml:"branch,omitempty"`
}

// NATSConfig controls mirroring of run events onto NATS JetStream.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Stream  string `yaml:"stream,omitempty"`
}

// MetricsConfig toggles the prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug|info|warn|error
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env if present; existing process env wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CacheEnabled reports whether the dependency cache should be used.
func (c *Config) CacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return true
	}
	return *c.Cache.Enabled
}
