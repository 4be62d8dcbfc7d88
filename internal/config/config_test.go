package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"ADDR", "STORE", "DB_PATH", "DATABASE_URL", "BUS", "AMQP_URL", "CACHE", "REDIS_ADDR",
	"JWT_SECRET", "TOKEN_TTL", "REQUIRE_AUTH", "DEFAULT_TAX_PERCENT", "TIMEZONE", "ANALYTICS_MODE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantErr      string
		validateFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			validateFunc: func(t *testing.T, cfg *Config) {
				if cfg.Addr != ":8080" || cfg.Store != "sqlite" || cfg.Bus != "memory" || cfg.Cache != "memory" {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
				if cfg.TokenTTL != 12*time.Hour {
					t.Errorf("expected 12h token ttl, got %s", cfg.TokenTTL)
				}
				if cfg.DefaultTaxPercent.String() != "5" {
					t.Errorf("expected default tax 5, got %s", cfg.DefaultTaxPercent)
				}
				if cfg.RequireAuth {
					t.Error("expected auth to be optional by default")
				}
				if cfg.AnalyticsMode != "leader" {
					t.Errorf("expected leader analytics by default, got %q", cfg.AnalyticsMode)
				}
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"STORE":               "Postgres",
				"DATABASE_URL":        "postgres://localhost/tableside",
				"BUS":                 "amqp",
				"CACHE":               "redis",
				"REQUIRE_AUTH":        "true",
				"JWT_SECRET":          "s3cret",
				"DEFAULT_TAX_PERCENT": "12.5",
				"TIMEZONE":            "UTC",
			},
			validateFunc: func(t *testing.T, cfg *Config) {
				if cfg.Store != "postgres" || cfg.Bus != "amqp" || cfg.Cache != "redis" {
					t.Errorf("unexpected backends: %+v", cfg)
				}
				if !cfg.RequireAuth || cfg.JWTSecret != "s3cret" {
					t.Errorf("unexpected auth settings: %+v", cfg)
				}
				if cfg.DefaultTaxPercent.String() != "12.5" {
					t.Errorf("expected tax 12.5, got %s", cfg.DefaultTaxPercent)
				}
				if cfg.Location != time.UTC {
					t.Errorf("expected UTC, got %s", cfg.Location)
				}
			},
		},
		{name: "postgres without url", env: map[string]string{"STORE": "postgres"}, wantErr: "DATABASE_URL"},
		{name: "unknown store", env: map[string]string{"STORE": "mongo"}, wantErr: "unknown STORE"},
		{name: "unknown bus", env: map[string]string{"BUS": "kafka"}, wantErr: "unknown BUS"},
		{
			name: "analytics follower",
			env:  map[string]string{"ANALYTICS_MODE": "Follower", "CACHE": "redis"},
			validateFunc: func(t *testing.T, cfg *Config) {
				if cfg.AnalyticsMode != "follower" {
					t.Errorf("expected follower, got %q", cfg.AnalyticsMode)
				}
			},
		},
		{name: "follower without shared cache", env: map[string]string{"ANALYTICS_MODE": "follower"}, wantErr: "CACHE=redis"},
		{name: "unknown analytics mode", env: map[string]string{"ANALYTICS_MODE": "solo"}, wantErr: "unknown ANALYTICS_MODE"},
		{name: "auth without secret", env: map[string]string{"REQUIRE_AUTH": "true"}, wantErr: "JWT_SECRET"},
		{name: "bad ttl", env: map[string]string{"TOKEN_TTL": "soon"}, wantErr: "TOKEN_TTL"},
		{name: "tax out of range", env: map[string]string{"DEFAULT_TAX_PERCENT": "120"}, wantErr: "between 0 and 100"},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}, wantErr: "TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := FromEnv()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromEnv failed: %v", err)
			}
			tt.validateFunc(t, cfg)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("ADDR")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ADDR=:9090\nBUS=memory\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected addr from file, got %q", cfg.Addr)
	}
	os.Unsetenv("ADDR")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should not fail, got %v", err)
	}
}
