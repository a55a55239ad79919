package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	TLS      TLSConfig      `yaml:"tls"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

// SecurityConfig is resolved once at process start and never mutated after.
// Every component holds a reference to the same snapshot.
type SecurityConfig struct {
	AuthToken          string     `yaml:"auth_token"`
	EnableRateLimiting bool       `yaml:"enable_rate_limiting"`
	EnableAuditLogging bool       `yaml:"enable_audit_logging"`
	MaxMessageLength   int        `yaml:"max_message_length"`
	MaxSearchResults   int        `yaml:"max_search_results"`
	RateLimits         RateLimits `yaml:"rate_limits"`
}

// RateLimits are per-class maximum request counts per one-minute window.
type RateLimits struct {
	Messages int `yaml:"messages"`
	Emails   int `yaml:"emails"`
	Search   int `yaml:"search"`
	Write    int `yaml:"write"`
	Global   int `yaml:"global"`
}

// BridgeConfig controls how the external automation tools are invoked.
type BridgeConfig struct {
	OsascriptPath  string        `yaml:"osascript_path"`
	SqlitePath     string        `yaml:"sqlite_path"`
	ChatDBPath     string        `yaml:"chat_db_path"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxTimeout     time.Duration `yaml:"max_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type TracingConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Endpoint string  `yaml:"endpoint"`
	Sample   float64 `yaml:"sample_rate"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CLI flag or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8787,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    65 * time.Second, // > max automation timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Security: SecurityConfig{
			EnableRateLimiting: true,
			EnableAuditLogging: true,
			MaxMessageLength:   10000,
			MaxSearchResults:   100,
			RateLimits: RateLimits{
				Messages: 10,
				Emails:   20,
				Search:   30,
				Write:    5,
				Global:   100,
			},
		},
		Bridge: BridgeConfig{
			OsascriptPath:  "osascript",
			SqlitePath:     "sqlite3",
			ChatDBPath:     defaultChatDBPath(),
			DefaultTimeout: 15 * time.Second,
			MaxTimeout:     60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled: false,
			Sample:  0.1,
		},
		TLS: TLSConfig{
			Enabled: false,
		},
	}
}

// ApplyEnv overlays the environment variable surface onto the config.
// Environment values always win over file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MCP_AUTH_TOKEN"); v != "" {
		c.Security.AuthToken = v
	}
	if v, ok := envBool("ENABLE_RATE_LIMITING"); ok {
		c.Security.EnableRateLimiting = v
	}
	if v, ok := envBool("ENABLE_AUDIT_LOGGING"); ok {
		c.Security.EnableAuditLogging = v
	}
	if v, ok := envInt("MAX_MESSAGE_LENGTH"); ok {
		c.Security.MaxMessageLength = v
	}
	if v, ok := envInt("MAX_SEARCH_RESULTS"); ok {
		c.Security.MaxSearchResults = v
	}
	if v, ok := envInt("RATE_LIMIT_MESSAGES"); ok {
		c.Security.RateLimits.Messages = v
	}
	if v, ok := envInt("RATE_LIMIT_EMAILS"); ok {
		c.Security.RateLimits.Emails = v
	}
	if v, ok := envInt("RATE_LIMIT_SEARCH"); ok {
		c.Security.RateLimits.Search = v
	}
	if v, ok := envInt("RATE_LIMIT_WRITE"); ok {
		c.Security.RateLimits.Write = v
	}
	if v, ok := envInt("RATE_LIMIT_GLOBAL"); ok {
		c.Security.RateLimits.Global = v
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Security.MaxMessageLength < 1 {
		return fmt.Errorf("security.max_message_length must be >= 1")
	}
	if c.Security.MaxSearchResults < 1 {
		return fmt.Errorf("security.max_search_results must be >= 1")
	}
	for name, limit := range map[string]int{
		"messages": c.Security.RateLimits.Messages,
		"emails":   c.Security.RateLimits.Emails,
		"search":   c.Security.RateLimits.Search,
		"write":    c.Security.RateLimits.Write,
		"global":   c.Security.RateLimits.Global,
	} {
		if limit < 1 {
			return fmt.Errorf("security.rate_limits.%s must be >= 1", name)
		}
	}
	if c.Bridge.DefaultTimeout > c.Bridge.MaxTimeout {
		return fmt.Errorf("bridge.default_timeout (%s) must be <= max_timeout (%s)",
			c.Bridge.DefaultTimeout, c.Bridge.MaxTimeout)
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable, connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaultChatDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("ignoring non-boolean environment value")
		return false, false
	}
	return b, true
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("ignoring non-numeric environment value")
		return 0, false
	}
	return n, true
}
