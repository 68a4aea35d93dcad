package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/grab/internal/progress"
)

// StrategyAll runs every strategy one after another.
const StrategyAll = "all"

// Config defines configuration for the grab CLI.
type Config struct {
	URLs        []string      `yaml:"urls"`
	Output      string        `yaml:"output"`
	Strategy    string        `yaml:"strategy"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxSize     int64         `yaml:"max_size"`
	UserAgent   string        `yaml:"user_agent"`
	Progress    bool          `yaml:"progress"`
	Manifest    bool          `yaml:"manifest"`
	LogLevel    string        `yaml:"log_level"`
	Retry       RetryConfig   `yaml:"retry"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults. Failed requests are not
// retried unless configured.
func Default() Config {
	return Config{
		Output:    ".",
		Strategy:  "threads",
		Timeout:   30 * time.Second,
		Manifest:  true,
		LogLevel:  "info",
		UserAgent: "grab/1.0",
		Retry: RetryConfig{
			Attempts:   0,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	URLs        []string        `yaml:"urls"`
	Output      string          `yaml:"output"`
	Strategy    string          `yaml:"strategy"`
	Concurrency int             `yaml:"concurrency"`
	Timeout     string          `yaml:"timeout"`
	MaxSize     string          `yaml:"max_size"`
	UserAgent   string          `yaml:"user_agent"`
	Progress    bool            `yaml:"progress"`
	Manifest    *bool           `yaml:"manifest"`
	LogLevel    string          `yaml:"log_level"`
	Retry       yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if len(yc.URLs) > 0 {
		cfg.URLs = yc.URLs
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Strategy != "" {
		cfg.Strategy = yc.Strategy
	}
	cfg.Concurrency = yc.Concurrency
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MaxSize != "" {
		size, err := progress.ParseBytes(yc.MaxSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_size: %w", err)
		}
		cfg.MaxSize = size
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	cfg.Progress = yc.Progress
	if yc.Manifest != nil {
		cfg.Manifest = *yc.Manifest
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GRAB_ prefix; GRAB_URLS is comma separated.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GRAB_URLS"); v != "" {
		c.URLs = splitList(v)
	}
	if v := os.Getenv("GRAB_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("GRAB_STRATEGY"); v != "" {
		c.Strategy = v
	}
	if v := os.Getenv("GRAB_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("GRAB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("GRAB_MAX_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_MAX_SIZE: %w", err)
		}
		c.MaxSize = size
	}
	if v := os.Getenv("GRAB_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("GRAB_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("GRAB_MANIFEST"); v != "" {
		c.Manifest = v == "true" || v == "1"
	}
	if v := os.Getenv("GRAB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GRAB_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("GRAB_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("GRAB_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GRAB_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the configuration. URLs themselves are checked by the
// dispatcher before a batch starts.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	switch strings.ToLower(c.Strategy) {
	case "threads", "processes", "async", StrategyAll:
	default:
		return fmt.Errorf("config: unknown strategy %q", c.Strategy)
	}
	if c.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.MaxSize < 0 {
		return errors.New("config: max_size must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry attempts must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if len(override.URLs) > 0 {
		c.URLs = override.URLs
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.Strategy != "" {
		c.Strategy = override.Strategy
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.MaxSize != 0 {
		c.MaxSize = override.MaxSize
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
