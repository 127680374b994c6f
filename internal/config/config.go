package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/trivia.db"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir    string     `env:"SPA_DIR" envDefault:"web/dist"`
	PublicURL string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	SupabaseURL     string `env:"SUPABASE_URL,required,notEmpty"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY,required,notEmpty"`
	OAuthProvider   string `env:"OAUTH_PROVIDER" envDefault:"google"`

	// CatalogPath overrides the embedded category list.
	CatalogPath         string        `env:"CATALOG_PATH"`
	InventoryTimeout    time.Duration `env:"INVENTORY_TIMEOUT" envDefault:"15s"`
	FallbackConcurrency int           `env:"FALLBACK_CONCURRENCY" envDefault:"25"`
	TableIdleTimeout    time.Duration `env:"TABLE_IDLE_TIMEOUT" envDefault:"6h"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.FallbackConcurrency < 1 {
		return nil, fmt.Errorf("FALLBACK_CONCURRENCY must be positive, got %d", cfg.FallbackConcurrency)
	}
	return &cfg, nil
}
