// Package config loads the pieskieo CLI profile.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the profile file.
const (
	EnvServerURL = "PIESKIEO_URL"
	EnvToken     = "PIESKIEO_TOKEN"
	EnvProfile   = "PIESKIEO_ENV"
)

// Config holds the CLI profile.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the Pieskieo endpoint and credentials.
type ServerConfig struct {
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// EmbeddingConfig holds the text embedding provider used by put-text and search-text.
// An empty APIKey disables text commands.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Enabled reports whether an embedding provider is configured.
func (e EmbeddingConfig) Enabled() bool { return e.APIKey != "" }

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// MetricsConfig controls the optional Prometheus textfile written after each command.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Load reads the profile for env. A missing profile file is not an error:
// defaults and environment overrides still apply. A .env file in the working
// directory is loaded first without overriding variables already set.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	path := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the profile name from PIESKIEO_ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv(EnvProfile); env != "" {
		return env
	}
	return "local"
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Server.Token = v
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = "http://localhost:8000"
	}
	if c.Server.TimeoutSec <= 0 {
		c.Server.TimeoutSec = 5
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.url must be an absolute URL, got %q", c.Server.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Server.Token != "" && c.Server.User != "" {
		return errors.New("server.token and server.user are mutually exclusive")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// findConfigPath locates the profile file: ./config/<env>.yaml, then
// $XDG_CONFIG_HOME/pieskieo/<env>.yaml (or ~/.config/pieskieo/<env>.yaml).
func findConfigPath(env string) string {
	filename := env + ".yaml"

	local := filepath.Join("config", filename)
	if fileExists(local) {
		return local
	}
	if dir, err := os.UserConfigDir(); err == nil {
		if path := filepath.Join(dir, "pieskieo", filename); fileExists(path) {
			return path
		}
	}
	return local
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
