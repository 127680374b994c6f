package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/tahaddi/internal/auth"
)

const msgLoginExpired = "رابط الدخول منتهي الصلاحية أو غير صالح."

type MeResponse struct {
	SignedIn bool       `json:"signedIn"`
	User     *auth.User `json:"user,omitempty"`
}

func handleLogin(logins Logins, cookies cookieJar, publicURL string) http.HandlerFunc {
	redirectTo := strings.TrimRight(publicURL, "/") + "/auth/callback"

	return func(w http.ResponseWriter, r *http.Request) {
		target, verifier, err := logins.BeginLogin(redirectTo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		cookies.set(w, verifierCookieName, verifier, verifierMaxAge)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func handleCallback(logger *slog.Logger, logins Logins, cookies cookieJar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies.clear(w, verifierCookieName)

		q := r.URL.Query()
		if desc := q.Get("error_description"); desc != "" {
			logger.Warn("login rejected by provider", "error", q.Get("error"), "description", desc)
			writeError(w, http.StatusUnauthorized, msgLoginExpired)
			return
		}

		var verifier string
		if c, err := r.Cookie(verifierCookieName); err == nil {
			verifier = c.Value
		}

		_, err := logins.CompleteLogin(r.Context(), browserSID(r), q.Get("code"), verifier)
		if err != nil {
			if errors.Is(err, auth.ErrExchangeFailed) {
				logger.Warn("login exchange failed", "error", err)
			} else {
				logger.Error("completing login", "error", err)
			}
			writeError(w, http.StatusUnauthorized, msgLoginExpired)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func handleLogout(logger *slog.Logger, logins Logins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := logins.SignOut(r.Context(), browserSID(r)); err != nil {
			logger.Error("signing out", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMe(logger *slog.Logger, logins Logins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := logins.Session(r.Context(), browserSID(r))
		if errors.Is(err, auth.ErrNoSession) {
			writeJSON(w, http.StatusOK, MeResponse{})
			return
		}
		if err != nil {
			logger.Error("loading session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, MeResponse{SignedIn: true, User: &sess.User})
	}
}
