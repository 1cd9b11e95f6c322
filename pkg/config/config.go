// Package config loads codejoiner settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "codejoiner.yaml"

// Environment variables that override file settings.
const (
	EnvRemoteURL    = "CODEJOINER_REMOTE_URL"
	EnvAccessKey    = "CODEJOINER_ACCESS_KEY"
	EnvDebug        = "CODEJOINER_DEBUG"
	EnvGlobalIgnore = "JOINIGNORE_GLOBAL"
)

// Config holds all codejoiner configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Join    JoinConfig    `yaml:"join"`
	Remote  RemoteConfig  `yaml:"remote"`
	Serve   ServeConfig   `yaml:"serve"`
	Preview PreviewConfig `yaml:"preview"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"` // debug, info, warn, error; empty keeps the mode default
	File  string `yaml:"file"`  // log destination instead of stderr
}

// JoinConfig configures local source collection and output.
type JoinConfig struct {
	GlobalIgnoreFile string   `yaml:"global_ignore_file"`
	Ignore           []string `yaml:"ignore"`
	MaxFileSizeKB    int      `yaml:"max_file_size_kb"`
	Workers          int      `yaml:"workers"`
	OutputDir        string   `yaml:"output_dir"`
	OutputName       string   `yaml:"output_name"`
}

// RemoteConfig configures the remote storage used by load and save.
type RemoteConfig struct {
	URL       string `yaml:"url"`        // base URL of a codejoiner serve instance
	AccessKey string `yaml:"access_key"` // exchanged for a session token on sign-in
	Timeout   string `yaml:"timeout"`
}

// ServeConfig configures the web service.
type ServeConfig struct {
	Addr         string `yaml:"addr"`
	DatabasePath string `yaml:"database_path"`
	AccessKey    string `yaml:"access_key"` // empty disables the storage API
	MaxUploadMB  int    `yaml:"max_upload_mb"`
	PreviewLimit int    `yaml:"preview_limit"`
}

// PreviewConfig configures the local sandboxed preview server.
type PreviewConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{},
		Join: JoinConfig{
			Workers:       4,
			OutputDir:     ".",
			OutputName:    "index.html",
		},
		Remote: RemoteConfig{
			Timeout: "30s",
		},
		Serve: ServeConfig{
			Addr:         "127.0.0.1:8080",
			DatabasePath: "codejoiner.db",
			MaxUploadMB:  10,
			PreviewLimit: 64,
		},
		Preview: PreviewConfig{
			Addr: "127.0.0.1:0",
		},
	}
}

// Load reads the configuration at path. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(EnvRemoteURL); url != "" {
		c.Remote.URL = url
	}
	if key := os.Getenv(EnvAccessKey); key != "" {
		c.Remote.AccessKey = key
		if c.Serve.AccessKey == "" {
			c.Serve.AccessKey = key
		}
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = debug
		}
	}
	if p := os.Getenv(EnvGlobalIgnore); p != "" {
		c.Join.GlobalIgnoreFile = p
	}
}

// Validate checks values that would otherwise fail later and far from the file.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	if c.Join.MaxFileSizeKB < 0 {
		return fmt.Errorf("join.max_file_size_kb must not be negative")
	}
	if c.Join.Workers < 0 {
		return fmt.Errorf("join.workers must not be negative")
	}
	if c.Serve.MaxUploadMB <= 0 {
		return fmt.Errorf("serve.max_upload_mb must be positive")
	}
	if _, err := time.ParseDuration(c.Remote.Timeout); c.Remote.Timeout != "" && err != nil {
		return fmt.Errorf("invalid remote.timeout: %w", err)
	}
	return nil
}

// RemoteTimeout returns the HTTP timeout for remote storage requests.
func (c *Config) RemoteTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Remote.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}
