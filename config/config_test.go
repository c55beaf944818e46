package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreTimeout != 5*time.Second || cfg.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("DAILY_QUOTA", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.StoreTimeout != 750*time.Millisecond || cfg.DailyQuota != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	cfg, err := Load()
	if err != nil || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("default origins %v (%v)", cfg.CORSOrigins, err)
	}

	t.Setenv("CORS_ORIGINS", "http://localhost:5173,https://app.example.com")
	cfg, err = Load()
	if err != nil || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("origins %v (%v)", cfg.CORSOrigins, err)
	}
}
