package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/tahaddi/internal/trivia"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rpcCall struct {
	Path   string
	APIKey string
	Auth   string
	Params map[string]any
}

func newTestServer(t *testing.T, status int, body string, calls *[]rpcCall) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var params map[string]any
		json.NewDecoder(r.Body).Decode(&params)
		*calls = append(*calls, rpcCall{
			Path:   r.URL.Path,
			APIKey: r.Header.Get("apikey"),
			Auth:   r.Header.Get("Authorization"),
			Params: params,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemainingRounds(t *testing.T) {
	var calls []rpcCall
	srv := newTestServer(t, http.StatusOK, `[
		{"category": "تاريخ", "remaining_rounds": 3},
		{"category": "جغرافيا", "remaining_rounds": "2"},
		{"category": "رياضة", "remaining_rounds": -4},
		{"category": "علوم", "remaining_rounds": "كثير"},
		{"remaining_rounds": 9}
	]`, &calls)

	c := New(srv.URL, "anon", discardLogger())
	got, err := c.RemainingRounds(context.Background(), trivia.Player{ID: "u1", AccessToken: "jwt"})
	if err != nil {
		t.Fatalf("RemainingRounds: %v", err)
	}

	want := map[string]int{"تاريخ": 3, "جغرافيا": 2, "رياضة": 0, "علوم": 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}

	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	call := calls[0]
	if call.Path != "/rest/v1/rpc/get_remaining_rounds_per_category" {
		t.Errorf("path = %q", call.Path)
	}
	if call.APIKey != "anon" {
		t.Errorf("apikey = %q", call.APIKey)
	}
	if call.Auth != "Bearer jwt" {
		t.Errorf("authorization = %q, want user token", call.Auth)
	}
	if call.Params["p_user_id"] != "u1" {
		t.Errorf("p_user_id = %v", call.Params["p_user_id"])
	}
}

func TestGameBoard(t *testing.T) {
	var calls []rpcCall
	srv := newTestServer(t, http.StatusOK, `[
		{"category": "تاريخ", "points": 100, "question_text": "س١", "answer_text": "ج١", "sources": [{"title": "ويكي", "uri": "https://example.org"}]},
		{"category": "تاريخ", "points": "200", "question": "س٢", "answer": "ج٢", "image_url": "https://img", "sources": "bad"}
	]`, &calls)

	c := New(srv.URL+"/", "anon", discardLogger())
	rows, err := c.GameBoard(context.Background(), trivia.Guest(), []string{"تاريخ", "علوم"})
	if err != nil {
		t.Fatalf("GameBoard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	if rows[0].Text() != "س١" || rows[0].AnswerValue() != "ج١" || len(rows[0].Sources) != 1 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Points != 200 || rows[1].Text() != "س٢" || rows[1].AnswerValue() != "ج٢" {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[1].Media() != "https://img" || rows[1].Sources != nil {
		t.Errorf("row 1 media/sources = %q %v", rows[1].Media(), rows[1].Sources)
	}

	call := calls[0]
	if call.Path != "/rest/v1/rpc/get_game_board" {
		t.Errorf("path = %q", call.Path)
	}
	if call.Auth != "Bearer anon" {
		t.Errorf("guest authorization = %q, want anon key", call.Auth)
	}
	cats, _ := call.Params["p_categories"].([]any)
	if len(cats) != 2 || cats[1] != "علوم" {
		t.Errorf("p_categories = %v", call.Params["p_categories"])
	}
}

func TestNextQuestion(t *testing.T) {
	t.Run("row", func(t *testing.T) {
		var calls []rpcCall
		srv := newTestServer(t, http.StatusOK, `[{"category": "علوم", "points": 300, "question_text": "س", "answer_text": "ج"}]`, &calls)
		c := New(srv.URL, "anon", discardLogger())

		row, err := c.NextQuestion(context.Background(), trivia.Player{ID: "u1"}, "علوم", 300)
		if err != nil {
			t.Fatalf("NextQuestion: %v", err)
		}
		if row == nil || row.Text() != "س" {
			t.Fatalf("row = %+v", row)
		}
		p := calls[0].Params
		if p["p_category"] != "علوم" || p["p_points"] != float64(300) {
			t.Errorf("params = %v", p)
		}
	})

	for name, body := range map[string]string{"empty": `[]`, "null": `null`, "blank": ``} {
		t.Run(name, func(t *testing.T) {
			var calls []rpcCall
			srv := newTestServer(t, http.StatusOK, body, &calls)
			c := New(srv.URL, "anon", discardLogger())

			row, err := c.NextQuestion(context.Background(), trivia.Player{ID: "u1"}, "علوم", 300)
			if err != nil {
				t.Fatalf("NextQuestion: %v", err)
			}
			if row != nil {
				t.Errorf("row = %+v, want nil", row)
			}
		})
	}
}

func TestRPCError(t *testing.T) {
	var calls []rpcCall
	srv := newTestServer(t, http.StatusNotFound,
		`{"code": "PGRST202", "message": "Could not find the function", "hint": null}`, &calls)
	c := New(srv.URL, "anon", discardLogger())

	_, err := c.GameBoard(context.Background(), trivia.Guest(), []string{"x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "PGRST202" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestRPCInvalidJSON(t *testing.T) {
	var calls []rpcCall
	srv := newTestServer(t, http.StatusOK, `not json`, &calls)
	c := New(srv.URL, "anon", discardLogger())

	if _, err := c.RemainingRounds(context.Background(), trivia.Player{ID: "u1"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"unauthorized still reachable", http.StatusUnauthorized, false},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/rest/v1/" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := New(srv.URL, "anon", discardLogger()).Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want FlexInt
	}{
		{`500`, 500},
		{`"400"`, 400},
		{`" 300 "`, 300},
		{`200.0`, 200},
		{`null`, 0},
		{`"abc"`, 0},
	}
	for _, tt := range tests {
		var f FlexInt
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if f != tt.want {
			t.Errorf("%s = %d, want %d", tt.in, f, tt.want)
		}
	}
}
