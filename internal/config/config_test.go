package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionBackend != "memory" {
		t.Errorf("SessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if cfg.GeminiModelID != "gemini-2.0-flash" {
		t.Errorf("GeminiModelID = %q, want gemini-2.0-flash", cfg.GeminiModelID)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("GatewayTimeout = %s, want 30s", cfg.GatewayTimeout)
	}
	if cfg.SessionTTL != 0 {
		t.Errorf("SessionTTL = %s, want 0 (no expiry)", cfg.SessionTTL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_BACKEND", " Redis ")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.SessionBackend != "redis" {
		t.Errorf("SessionBackend = %q, want redis (trimmed, lowercased)", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %s, want 24h", cfg.SessionTTL)
	}
	if cfg.GatewayTimeout != 5*time.Second {
		t.Errorf("GatewayTimeout = %s, want 5s", cfg.GatewayTimeout)
	}
	if !cfg.RedisTLS {
		t.Error("RedisTLS should be true")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("GATEWAY_TIMEOUT", "not-a-duration")
	cfg := Load()
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("GatewayTimeout = %s, want default 30s", cfg.GatewayTimeout)
	}
}
