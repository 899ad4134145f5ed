package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	if cfg.Provider != "gemini" {
		t.Fatalf("expected default provider gemini, got %s", cfg.Provider)
	}
	if cfg.PauseWindow != 7*time.Second {
		t.Fatalf("expected 7s pause window, got %v", cfg.PauseWindow)
	}
	if cfg.FullscreenGrace != 30*time.Second {
		t.Fatalf("expected 30s fullscreen grace, got %v", cfg.FullscreenGrace)
	}
	if cfg.ViolationLimit != 3 {
		t.Fatalf("expected violation limit 3, got %d", cfg.ViolationLimit)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_PAUSE_WINDOW", "3s")
	t.Setenv("SESSION_VIOLATION_LIMIT", "5")
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PauseWindow != 3*time.Second {
		t.Fatalf("expected 3s pause window, got %v", cfg.PauseWindow)
	}
	if cfg.ViolationLimit != 5 {
		t.Fatalf("expected violation limit 5, got %d", cfg.ViolationLimit)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("expected redis:6380, got %s", cfg.RedisAddr)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		t.Setenv("AI_PROVIDER", "llama")
		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for unsupported provider")
		}
	})

	t.Run("non-positive pause window", func(t *testing.T) {
		t.Setenv("SESSION_PAUSE_WINDOW", "-1s")
		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for negative pause window")
		}
	})

	t.Run("zero violation limit", func(t *testing.T) {
		t.Setenv("SESSION_VIOLATION_LIMIT", "0")
		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for zero violation limit")
		}
	})
}

func TestGetEnvDurationIgnoresGarbage(t *testing.T) {
	t.Setenv("SESSION_PAUSE_WINDOW", "not-a-duration")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PauseWindow != 7*time.Second {
		t.Fatalf("expected fallback to default, got %v", cfg.PauseWindow)
	}
}
