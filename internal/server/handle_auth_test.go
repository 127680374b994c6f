package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestLoginRedirect(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/auth/login", nil)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if got := loc.Query().Get("redirect_to"); got != "http://localhost:8080/auth/callback" {
		t.Errorf("redirect_to = %q", got)
	}

	var verifier string
	for _, c := range rec.Result().Cookies() {
		if c.Name == verifierCookieName {
			verifier = c.Value
		}
	}
	if verifier == "" {
		t.Fatal("no verifier cookie")
	}
}

func callback(app *testApp, query, verifier string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	req.AddCookie(&http.Cookie{Name: sidCookieName, Value: app.sid})
	if verifier != "" {
		req.AddCookie(&http.Cookie{Name: verifierCookieName, Value: verifier})
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func TestCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		verifier string
		want     int
	}{
		{"success", "code=good", "v", http.StatusFound},
		{"bad code", "code=stale", "v", http.StatusUnauthorized},
		{"missing verifier", "code=good", "", http.StatusUnauthorized},
		{"missing code", "", "v", http.StatusUnauthorized},
		{"provider error", "error=access_denied&error_description=denied", "v", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			rec := callback(app, tt.query, tt.verifier)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				body := decode[ErrorResponse](t, rec)
				if body.Error != msgLoginExpired {
					t.Errorf("error = %q", body.Error)
				}
				return
			}
			if loc := rec.Header().Get("Location"); loc != "/" {
				t.Errorf("location = %q", loc)
			}
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	app := newTestApp(t)

	me := decode[MeResponse](t, app.do(t, http.MethodGet, "/api/me", nil))
	if me.SignedIn {
		t.Fatal("signed in before login")
	}

	if rec := callback(app, "code=good", "v"); rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d", rec.Code)
	}
	me = decode[MeResponse](t, app.do(t, http.MethodGet, "/api/me", nil))
	if !me.SignedIn || me.User == nil || me.User.ID != "user-1" {
		t.Fatalf("me = %+v", me)
	}

	if rec := app.do(t, http.MethodPost, "/api/session/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	me = decode[MeResponse](t, app.do(t, http.MethodGet, "/api/me", nil))
	if me.SignedIn {
		t.Error("still signed in after logout")
	}

	rec := app.do(t, http.MethodPost, "/api/game/start", StartRequest{Categories: fivePicks})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("start after logout = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sign in required") {
		t.Errorf("body = %s", rec.Body)
	}
}
