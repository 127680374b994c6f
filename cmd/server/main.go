package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/tahaddi/internal/auth"
	"github.com/playperu/tahaddi/internal/board"
	"github.com/playperu/tahaddi/internal/catalog"
	"github.com/playperu/tahaddi/internal/config"
	"github.com/playperu/tahaddi/internal/database"
	"github.com/playperu/tahaddi/internal/handler/health"
	"github.com/playperu/tahaddi/internal/inventory"
	"github.com/playperu/tahaddi/internal/migrations"
	"github.com/playperu/tahaddi/internal/play"
	"github.com/playperu/tahaddi/internal/server"
)

const (
	sweepInterval = time.Minute
	// Sessions whose access token lapsed this long ago are assumed abandoned;
	// refresh tokens do not outlive it.
	sessionRetention = 30 * 24 * time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Catalog ---
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("loaded catalog", "categories", len(cat.All()), "path", cfg.CatalogPath)

	// --- Backends ---
	inv := inventory.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger.With("component", "inventory"))
	gotrue := auth.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.OAuthProvider, logger.With("component", "auth"))
	sessions := server.NewSessionStore(db)
	logins := auth.NewManager(gotrue, sessions, logger.With("component", "auth"))

	// --- Tables ---
	broker := server.NewBroker()
	tables := play.NewTables(play.Deps{
		Catalog: cat,
		Rounds:  inv,
		Provisioner: board.NewProvisioner(inv, board.Options{
			CallTimeout: cfg.InventoryTimeout,
			Concurrency: cfg.FallbackConcurrency,
		}, logger.With("component", "board")),
		Publish: broker.Publish,
		Logger:  logger,
	}, logins.Provider)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.App{
		Tables:       tables,
		Catalog:      cat,
		Logins:       logins,
		Broker:       broker,
		PublicURL:    cfg.PublicURL,
		CookieSecure: cfg.CookieSecure,
		SPADir:       cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"sqlite":    health.CheckerFunc(db.PingContext),
			"inventory": health.CheckerFunc(inv.Ping),
			"auth":      health.CheckerFunc(gotrue.Ping),
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		tables.Wait()
		tables.Close()
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := tables.Sweep(cfg.TableIdleTimeout); n > 0 {
					logger.Info("swept idle tables", "count", n, "open", tables.Len())
				}
				n, err := sessions.PurgeExpired(gctx, time.Now().Add(-sessionRetention))
				if err != nil {
					logger.Error("purging sessions", "error", err)
				} else if n > 0 {
					logger.Info("purged expired sessions", "count", n)
				}
			}
		}
	})

	return g.Wait()
}
