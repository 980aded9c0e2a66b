package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test in an empty working and config directory with the
// override variables cleared.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv(EnvServerURL, "")
	t.Setenv(EnvToken, "")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoad_NoProfile(t *testing.T) {
	isolate(t)

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "http://localhost:8000" {
		t.Errorf("expected default URL, got %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Server.Timeout())
	}
	if cfg.Embedding.Enabled() {
		t.Error("expected embedding disabled without api key")
	}
}

func TestLoad_ProfileWithEnvExpansion(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TEST_PIESKIEO_KEY", "sk-test")
	writeFile(t, filepath.Join(dir, "config", "dev.yaml"), `
server:
  url: ${TEST_PIESKIEO_HOST:-http://db.internal:8000}
  timeout_sec: 30
embedding:
  api_key: ${TEST_PIESKIEO_KEY}
  dimensions: 256
logging:
  level: debug
metrics:
  textfile: /tmp/pieskieo.prom
`)

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "http://db.internal:8000" {
		t.Errorf("expected default from expansion, got %q", cfg.Server.URL)
	}
	if cfg.Server.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Server.TimeoutSec)
	}
	if cfg.Embedding.APIKey != "sk-test" || !cfg.Embedding.Enabled() {
		t.Errorf("expected api key from env, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 256 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Logging.Level != "debug" || cfg.Metrics.Textfile != "/tmp/pieskieo.prom" {
		t.Errorf("logging/metrics = %+v %+v", cfg.Logging, cfg.Metrics)
	}
}

func TestLoad_UserConfigDir(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "xdg", "pieskieo", "prod.yaml"), "server:\n  url: https://pieskieo.example.com\n")

	cfg, err := Load("prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "https://pieskieo.example.com" {
		t.Errorf("expected URL from user config dir, got %q", cfg.Server.URL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "local.yaml"), "server:\n  url: http://from-file:8000\n")
	t.Setenv(EnvServerURL, "http://from-env:9000")
	t.Setenv(EnvToken, "env-token")

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "http://from-env:9000" || cfg.Server.Token != "env-token" {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "PIESKIEO_TOKEN=dotenv-token\n")
	// godotenv.Load sets the variable for the rest of the process.
	t.Cleanup(func() { _ = os.Unsetenv(EnvToken) })
	_ = os.Unsetenv(EnvToken)

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Token != "dotenv-token" {
		t.Errorf("expected token from .env, got %q", cfg.Server.Token)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "local.yaml"), "server: [unclosed\n")

	if _, err := Load("local"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"relative url", func(c *Config) { c.Server.URL = "localhost:8000" }, true},
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://host" }, true},
		{"token and user", func(c *Config) { c.Server.Token = "t"; c.Server.User = "u" }, true},
		{"negative dimensions", func(c *Config) { c.Embedding.Dimensions = -1 }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"https", func(c *Config) { c.Server.URL = "https://h:443" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		Server:    ServerConfig{URL: "http://x:1", TimeoutSec: 9},
		Embedding: EmbeddingConfig{Provider: "nebius", Model: "bge"},
	}
	cfg.ApplyDefaults()

	if cfg.Server.URL != "http://x:1" || cfg.Server.TimeoutSec != 9 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "nebius" || cfg.Embedding.Model != "bge" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv(EnvProfile, "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv(EnvProfile, "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_A", "alpha")
	t.Setenv("TEST_EMPTY", "")
	got := string(expandEnvVars([]byte("${TEST_A} ${TEST_EMPTY:-fallback} ${TEST_UNSET_XYZ}")))
	if got != "alpha fallback " {
		t.Errorf("expandEnvVars = %q", got)
	}
}
