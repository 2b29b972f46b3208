package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REVEAL_WINDOW_SECONDS", "")
	cfg := LoadConfig()

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.XPPerCheckin != 50 {
		t.Errorf("expected 50 xp per check-in, got %d", cfg.XPPerCheckin)
	}
	if !cfg.SeedCatalog {
		t.Error("expected catalog seeding enabled by default")
	}
}

func TestLoadConfig_RevealWindowFromEnv(t *testing.T) {
	t.Setenv("REVEAL_WINDOW_SECONDS", "30")
	cfg := LoadConfig()

	if cfg.RevealWindow() != 30*time.Second {
		t.Errorf("expected 30s window, got %v", cfg.RevealWindow())
	}
	if cfg.RevealTick() != time.Second {
		t.Errorf("expected 1s tick, got %v", cfg.RevealTick())
	}
}
