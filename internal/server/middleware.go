package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/tahaddi/internal/play"
)

type ctxKey int

const (
	ctxKeySID ctxKey = iota
	ctxKeyTable
)

const (
	sidCookieName      = "sid"
	verifierCookieName = "pkce_verifier"
	sidMaxAge          = 30 * 24 * time.Hour
	verifierMaxAge     = 10 * time.Minute
)

type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieJar) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// browserMiddleware identifies the browser by its sid cookie, issuing one
// when absent or malformed, and attaches the browser's table.
func browserMiddleware(cookies cookieJar, tables *play.Tables) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if cookie, err := r.Cookie(sidCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
			}
			// Refresh on every request so active browsers keep their table.
			cookies.set(w, sidCookieName, sid, sidMaxAge)

			ctx := context.WithValue(r.Context(), ctxKeySID, sid)
			ctx = context.WithValue(ctx, ctxKeyTable, tables.Get(sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func browserSID(r *http.Request) string {
	return r.Context().Value(ctxKeySID).(string)
}

func browserTable(r *http.Request) *play.Table {
	return r.Context().Value(ctxKeyTable).(*play.Table)
}
