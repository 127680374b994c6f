package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBPath != "data/trivia.db" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.InventoryTimeout != 15*time.Second || cfg.FallbackConcurrency != 25 {
		t.Errorf("provisioning defaults = %v %d", cfg.InventoryTimeout, cfg.FallbackConcurrency)
	}
	if cfg.OAuthProvider != "google" || cfg.CookieSecure {
		t.Errorf("auth defaults = %q %v", cfg.OAuthProvider, cfg.CookieSecure)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("INVENTORY_TIMEOUT", "2s")
	t.Setenv("FALLBACK_CONCURRENCY", "5")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.InventoryTimeout != 2*time.Second ||
		cfg.FallbackConcurrency != 5 || !cfg.CookieSecure {
		t.Errorf("overrides = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing supabase url", map[string]string{"SUPABASE_ANON_KEY": "anon"}},
		{"missing anon key", map[string]string{"SUPABASE_URL": "https://x"}},
		{"zero concurrency", map[string]string{"SUPABASE_URL": "https://x", "SUPABASE_ANON_KEY": "anon", "FALLBACK_CONCURRENCY": "0"}},
		{"bad timeout", map[string]string{"SUPABASE_URL": "https://x", "SUPABASE_ANON_KEY": "anon", "INVENTORY_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SUPABASE_URL", "")
			t.Setenv("SUPABASE_ANON_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
