package config

import (
	"strings"
	"testing"
	"time"
)

func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			APIPrefix:      "/api",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{Path: "./data/test.db"},
		JWT: JWTConfig{
			Secret: strings.Repeat("s", 32),
			TTL:    time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	if err := validBaseConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "PORT"},
		{"relative prefix", func(c *Config) { c.Server.APIPrefix = "api" }, "API_PREFIX"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "DB_PATH"},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"non-positive ttl", func(c *Config) { c.JWT.TTL = 0 }, "JWT_TTL"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.wantKey)
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("expected error to mention %s, got: %v", tt.wantKey, err)
			}
		})
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("Port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/x.db" {
		t.Errorf("DB path: got %s", cfg.Database.Path)
	}
	if cfg.JWT.TTL != 30*time.Minute {
		t.Errorf("JWT TTL: got %v", cfg.JWT.TTL)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Allowed origins: got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics to be disabled")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log format: got %s", cfg.Log.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("API_PREFIX", "")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port for unparsable value, got %d", cfg.Server.Port)
	}
	if cfg.Server.APIPrefix != "/api" {
		t.Errorf("expected default prefix, got %s", cfg.Server.APIPrefix)
	}
}
