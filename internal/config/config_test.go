package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Server.Port)
	}
	if !cfg.Security.EnableRateLimiting {
		t.Error("EnableRateLimiting = false, want true")
	}
	if !cfg.Security.EnableAuditLogging {
		t.Error("EnableAuditLogging = false, want true")
	}
	if cfg.Security.MaxMessageLength != 10000 {
		t.Errorf("MaxMessageLength = %d, want 10000", cfg.Security.MaxMessageLength)
	}
	if cfg.Security.MaxSearchResults != 100 {
		t.Errorf("MaxSearchResults = %d, want 100", cfg.Security.MaxSearchResults)
	}

	rl := cfg.Security.RateLimits
	if rl.Messages != 10 || rl.Emails != 20 || rl.Search != 30 || rl.Write != 5 || rl.Global != 100 {
		t.Errorf("RateLimits = %+v", rl)
	}

	if cfg.Bridge.OsascriptPath != "osascript" || cfg.Bridge.SqlitePath != "sqlite3" {
		t.Errorf("Bridge paths = %q, %q", cfg.Bridge.OsascriptPath, cfg.Bridge.SqlitePath)
	}
	if cfg.Bridge.DefaultTimeout != 15*time.Second {
		t.Errorf("DefaultTimeout = %s", cfg.Bridge.DefaultTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config Validate() = %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MCP_AUTH_TOKEN", "env-token")
	t.Setenv("ENABLE_RATE_LIMITING", "false")
	t.Setenv("ENABLE_AUDIT_LOGGING", "true")
	t.Setenv("MAX_MESSAGE_LENGTH", "2000")
	t.Setenv("MAX_SEARCH_RESULTS", "50")
	t.Setenv("RATE_LIMIT_MESSAGES", "3")
	t.Setenv("RATE_LIMIT_GLOBAL", "42")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Security.AuthToken != "env-token" {
		t.Errorf("AuthToken = %q", cfg.Security.AuthToken)
	}
	if cfg.Security.EnableRateLimiting {
		t.Error("EnableRateLimiting = true, want false from env")
	}
	if cfg.Security.MaxMessageLength != 2000 {
		t.Errorf("MaxMessageLength = %d, want 2000", cfg.Security.MaxMessageLength)
	}
	if cfg.Security.MaxSearchResults != 50 {
		t.Errorf("MaxSearchResults = %d, want 50", cfg.Security.MaxSearchResults)
	}
	if cfg.Security.RateLimits.Messages != 3 {
		t.Errorf("RateLimits.Messages = %d, want 3", cfg.Security.RateLimits.Messages)
	}
	if cfg.Security.RateLimits.Global != 42 {
		t.Errorf("RateLimits.Global = %d, want 42", cfg.Security.RateLimits.Global)
	}
	// Untouched values keep their defaults.
	if cfg.Security.RateLimits.Write != 5 {
		t.Errorf("RateLimits.Write = %d, want 5", cfg.Security.RateLimits.Write)
	}
}

func TestApplyEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("ENABLE_RATE_LIMITING", "yes please")
	t.Setenv("MAX_MESSAGE_LENGTH", "lots")
	t.Setenv("RATE_LIMIT_SEARCH", "-4")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if !cfg.Security.EnableRateLimiting {
		t.Error("malformed bool overrode the default")
	}
	if cfg.Security.MaxMessageLength != 10000 {
		t.Error("malformed int overrode the default")
	}
	if cfg.Security.RateLimits.Search != 30 {
		t.Error("negative int overrode the default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero message length", func(c *Config) { c.Security.MaxMessageLength = 0 }, true},
		{"zero search results", func(c *Config) { c.Security.MaxSearchResults = 0 }, true},
		{"zero rate limit", func(c *Config) { c.Security.RateLimits.Write = 0 }, true},
		{"timeout inversion", func(c *Config) {
			c.Bridge.DefaultTimeout = 2 * time.Minute
			c.Bridge.MaxTimeout = time.Minute
		}, true},
		{"tls without cert", func(c *Config) { c.TLS.Enabled = true }, true},
		{"tls with cert", func(c *Config) {
			c.TLS.Enabled = true
			c.TLS.CertFile = "cert.pem"
			c.TLS.KeyFile = "key.pem"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
security:
  auth_token: file-token
  max_search_results: 25
  rate_limits:
    search: 7
bridge:
  chat_db_path: /tmp/chat.db
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.AuthToken != "file-token" {
		t.Errorf("AuthToken = %q", cfg.Security.AuthToken)
	}
	if cfg.Security.RateLimits.Search != 7 {
		t.Errorf("RateLimits.Search = %d, want 7", cfg.Security.RateLimits.Search)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Security.RateLimits.Global != 100 {
		t.Errorf("RateLimits.Global = %d, want 100", cfg.Security.RateLimits.Global)
	}
	if cfg.Bridge.ChatDBPath != "/tmp/chat.db" {
		t.Errorf("ChatDBPath = %q", cfg.Bridge.ChatDBPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("want error for missing file")
	}
}
