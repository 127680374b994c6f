package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/tahaddi/internal/catalog"
	"github.com/playperu/tahaddi/internal/game"
	"github.com/playperu/tahaddi/internal/play"
)

type StartRequest struct {
	Team1      string   `json:"team1"`
	Team2      string   `json:"team2"`
	Categories []string `json:"categories"`
}

type SelectRequest struct {
	QuestionID string `json:"questionId"`
}

type SelectResponse struct {
	Outcome string        `json:"outcome"`
	State   play.Snapshot `json:"state"`
}

type AnswerRequest struct {
	Correct bool `json:"correct"`
}

type AnswerResponse struct {
	Correct  bool          `json:"correct"`
	Awarded  int           `json:"awarded"`
	Finished bool          `json:"finished"`
	State    play.Snapshot `json:"state"`
}

func handleStart(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}

		t := browserTable(r)
		err := t.Start(r.Context(), req.Team1, req.Team2, req.Categories)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, t.Snapshot())
		case errors.Is(err, play.ErrSignInRequired):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, game.ErrCategoryCount),
			errors.Is(err, game.ErrDuplicate),
			errors.Is(err, catalog.ErrUnknownCategory),
			errors.Is(err, catalog.ErrDuplicateCategory):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, play.ErrCategoryUnavailable),
			errors.Is(err, game.ErrWrongPhase):
			writeError(w, http.StatusConflict, err.Error())
		default:
			logger.Error("starting round", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, browserTable(r).Snapshot())
	}
}

func handleSelect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := readJSON(r, &req); err != nil || req.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId is required")
			return
		}

		t := browserTable(r)
		outcome := t.Select(req.QuestionID)
		writeJSON(w, http.StatusOK, SelectResponse{Outcome: outcome.String(), State: t.Snapshot()})
	}
}

func handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}

		t := browserTable(r)
		res, ok := t.Answer(req.Correct)
		if !ok {
			writeError(w, http.StatusConflict, "no active question")
			return
		}
		writeJSON(w, http.StatusOK, AnswerResponse{
			Correct:  res.Correct,
			Awarded:  res.Awarded,
			Finished: res.Finished,
			State:    t.Snapshot(),
		})
	}
}

func handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := browserTable(r)
		t.Reset()
		writeJSON(w, http.StatusOK, t.Snapshot())
	}
}
