package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/tahaddi/internal/auth"
	"github.com/playperu/tahaddi/internal/catalog"
	"github.com/playperu/tahaddi/internal/play"
)

// Logins is the slice of the auth manager the handlers use.
type Logins interface {
	BeginLogin(redirectTo string) (authorizeURL, verifier string, err error)
	CompleteLogin(ctx context.Context, sid, code, verifier string) (*auth.Session, error)
	Session(ctx context.Context, sid string) (*auth.Session, error)
	SignOut(ctx context.Context, sid string) error
}

// App carries everything the routes need.
type App struct {
	Tables       *play.Tables
	Catalog      *catalog.Catalog
	Logins       Logins
	Broker       *Broker
	PublicURL    string
	CookieSecure bool
	SPADir       string
}

func addRoutes(r chi.Router, logger *slog.Logger, app App) {
	cookies := cookieJar{secure: app.CookieSecure}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Tahaddi API", "/openapi.json", "/docs"))

	r.Group(func(r chi.Router) {
		r.Use(browserMiddleware(cookies, app.Tables))

		r.Get("/auth/login", handleLogin(app.Logins, cookies, app.PublicURL))
		r.Get("/auth/callback", handleCallback(logger, app.Logins, cookies))

		r.Route("/api", func(r chi.Router) {
			r.Post("/session/logout", handleLogout(logger, app.Logins))
			r.Get("/me", handleMe(logger, app.Logins))
			r.Get("/categories", handleCategories(app.Catalog))

			r.Route("/game", func(r chi.Router) {
				r.Post("/start", handleStart(logger))
				r.Get("/state", handleState())
				r.Post("/select", handleSelect())
				r.Post("/answer", handleAnswer())
				r.Post("/reset", handleReset())
				r.Get("/events", handleEvents(app.Broker))
				r.Get("/ws", handleWS(logger, app.Broker))
			})
		})
	})

	if app.SPADir != "" {
		if info, err := os.Stat(app.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", app.SPADir)
			r.NotFound(handleSPA(app.SPADir))
		}
	}
}
