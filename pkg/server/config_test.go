package server

import (
	"testing"
	"time"

	"github.com/voicetuber/kiln/pkg/defaults"
)

func TestParseConfig(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		cfg := parseConfig()

		if cfg.Address != "" {
			t.Errorf("expected empty address, got %s", cfg.Address)
		}
		if cfg.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.Port)
		}
		if cfg.RateLimit != 100 {
			t.Errorf("expected rate limit 100, got %v", cfg.RateLimit)
		}
		if cfg.RateLimitBurst != 200 {
			t.Errorf("expected rate limit burst 200, got %d", cfg.RateLimitBurst)
		}
		if cfg.MaxBodyBytes != defaults.MaxRequestBodyBytes {
			t.Errorf("expected max body %d, got %d", defaults.MaxRequestBodyBytes, cfg.MaxBodyBytes)
		}
		if cfg.ReadTimeout != defaults.ServerReadTimeout {
			t.Errorf("expected read timeout %v, got %v", defaults.ServerReadTimeout, cfg.ReadTimeout)
		}
		if cfg.WriteTimeout != defaults.ServerWriteTimeout {
			t.Errorf("expected write timeout %v, got %v", defaults.ServerWriteTimeout, cfg.WriteTimeout)
		}
		if cfg.ShutdownTimeout != defaults.ServerShutdownTimeout {
			t.Errorf("expected shutdown timeout %v, got %v", defaults.ServerShutdownTimeout, cfg.ShutdownTimeout)
		}
	})

	t.Run("custom port from environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		if cfg := parseConfig(); cfg.Port != 9090 {
			t.Errorf("expected port 9090 from env, got %d", cfg.Port)
		}
	})

	t.Run("invalid port from environment uses default", func(t *testing.T) {
		t.Setenv("PORT", "invalid")
		if cfg := parseConfig(); cfg.Port != 8080 {
			t.Errorf("expected default port 8080 for invalid env, got %d", cfg.Port)
		}
	})

	t.Run("shutdown timeout from environment", func(t *testing.T) {
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")
		if cfg := parseConfig(); cfg.ShutdownTimeout != 5*time.Second {
			t.Errorf("expected 5s shutdown timeout, got %v", cfg.ShutdownTimeout)
		}
	})

	t.Run("non-positive shutdown timeout ignored", func(t *testing.T) {
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "0")
		if cfg := parseConfig(); cfg.ShutdownTimeout != defaults.ServerShutdownTimeout {
			t.Errorf("expected default shutdown timeout, got %v", cfg.ShutdownTimeout)
		}
	})
}
