// Package inventory provides a client for the question inventory remote
// procedures exposed through the PostgREST RPC endpoint of the hosted backend.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/playperu/tahaddi/internal/trivia"
)

const (
	rpcRemainingRounds = "get_remaining_rounds_per_category"
	rpcGameBoard       = "get_game_board"
	rpcNextQuestion    = "get_next_question_for_points"
)

// FlexInt unmarshals from either a JSON number or a numeric string.
// Non-numeric values decode as zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("FlexInt: %w", err)
		}
		*f = FlexInt(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("FlexInt: cannot unmarshal %s", string(data))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(v)
	return nil
}

// Row is one question as returned by the board procedures. Several columns
// have legacy aliases; use the accessor methods.
type Row struct {
	Category     string     `json:"category"`
	Points       FlexInt    `json:"points"`
	QuestionText string     `json:"question_text"`
	Question     string     `json:"question"`
	AnswerText   string     `json:"answer_text"`
	Answer       string     `json:"answer"`
	MediaURL     string     `json:"media_url"`
	ImageURL     string     `json:"image_url"`
	MediaType    string     `json:"media_type"`
	Sources      SourceList `json:"sources"`
}

// SourceList tolerates malformed source columns by decoding them as empty.
type SourceList []trivia.Source

func (l *SourceList) UnmarshalJSON(data []byte) error {
	var sources []trivia.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		*l = nil
		return nil
	}
	*l = sources
	return nil
}

func (r Row) Text() string {
	if r.QuestionText != "" {
		return r.QuestionText
	}
	return r.Question
}

func (r Row) AnswerValue() string {
	if r.AnswerText != "" {
		return r.AnswerText
	}
	return r.Answer
}

func (r Row) Media() string {
	if r.MediaURL != "" {
		return r.MediaURL
	}
	return r.ImageURL
}

type roundsRow struct {
	Category        *string `json:"category"`
	RemainingRounds FlexInt `json:"remaining_rounds"`
}

// APIError is a non-2xx response from the RPC endpoint.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inventory returned status %d", e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("inventory returned status %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("inventory returned status %d: %s", e.Status, e.Message)
}

// Client calls the inventory procedures over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func New(baseURL, apiKey string, log *slog.Logger) *Client {
	return NewWithHTTPClient(baseURL, apiKey, &http.Client{Timeout: 30 * time.Second}, log)
}

func NewWithHTTPClient(baseURL, apiKey string, httpClient *http.Client, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// RemainingRounds returns how many question sets remain per category name.
func (c *Client) RemainingRounds(ctx context.Context, player trivia.Player) (map[string]int, error) {
	var rows []roundsRow
	err := c.rpc(ctx, player, rpcRemainingRounds, map[string]any{
		"p_user_id": player.ID,
	}, &rows)
	if err != nil {
		return nil, err
	}

	rounds := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Category == nil {
			continue
		}
		rounds[*r.Category] = max(0, int(r.RemainingRounds))
	}
	return rounds, nil
}

// GameBoard fetches a whole board for the named categories in one call.
func (c *Client) GameBoard(ctx context.Context, player trivia.Player, categories []string) ([]Row, error) {
	var rows []Row
	err := c.rpc(ctx, player, rpcGameBoard, map[string]any{
		"p_user_id":    player.ID,
		"p_categories": categories,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// NextQuestion fetches a single cell. It returns nil, nil when the inventory
// has nothing left for that category and point tier.
func (c *Client) NextQuestion(ctx context.Context, player trivia.Player, category string, points int) (*Row, error) {
	var rows []Row
	err := c.rpc(ctx, player, rpcNextQuestion, map[string]any{
		"p_user_id":  player.ID,
		"p_category": category,
		"p_points":   points,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Ping checks that the REST endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to inventory: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) rpc(ctx context.Context, player trivia.Player, fn string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", fn, err)
	}

	url := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	token := c.apiKey
	if player.AccessToken != "" {
		token = player.AccessToken
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", fn, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", fn, err)
	}

	c.log.Debug("inventory rpc",
		"fn", fn,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return fmt.Errorf("calling %s: %w", fn, apiErr)
	}

	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", fn, err)
	}
	return nil
}
