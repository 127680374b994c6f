package play

import (
	"github.com/playperu/tahaddi/internal/game"
	"github.com/playperu/tahaddi/internal/trivia"
)

type TeamView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// CellView is a board cell without its question or answer text.
type CellView struct {
	ID         string        `json:"id"`
	CategoryID string        `json:"categoryId"`
	Points     int           `json:"points"`
	Status     trivia.Status `json:"status"`
}

type Snapshot struct {
	Phase          game.Phase        `json:"phase"`
	Teams          [2]TeamView       `json:"teams"`
	CurrentTeam    int               `json:"currentTeam"`
	Categories     []trivia.Category `json:"categories"`
	Cells          []CellView        `json:"cells"`
	ActiveQuestion *trivia.Question  `json:"activeQuestion"`
	Progress       int               `json:"progress"`
	Message        string            `json:"message,omitempty"`
	Shortages      []string          `json:"shortages"`
	Error          string            `json:"error,omitempty"`
	Winner         string            `json:"winner,omitempty"`
}

// Snapshot renders the table for the browser. Cells are ordered by point
// tier, then by category, matching the board's row layout.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	s := t.machine.State()
	snap := Snapshot{
		Phase:       s.Phase,
		CurrentTeam: s.CurrentTeam,
		Categories:  s.SelectedCategories,
		Cells:       []CellView{},
		Progress:    t.progress,
		Message:     t.message,
		Shortages:   append([]string{}, t.shortages...),
		Error:       t.lastError,
	}
	if snap.Categories == nil {
		snap.Categories = []trivia.Category{}
	}
	for i := range s.TeamNames {
		snap.Teams[i] = TeamView{Name: s.TeamNames[i], Score: s.TeamScores[i]}
	}

	for _, p := range trivia.PointTiers {
		for _, c := range s.SelectedCategories {
			q, ok := s.Questions[trivia.CellID(c.ID, p)]
			if !ok {
				continue
			}
			snap.Cells = append(snap.Cells, CellView{
				ID:         q.ID,
				CategoryID: q.CategoryID,
				Points:     q.Points,
				Status:     q.Status,
			})
		}
	}

	if s.ActiveQuestionID != "" {
		q := s.Questions[s.ActiveQuestionID]
		snap.ActiveQuestion = &q
	}
	if s.Phase == game.PhaseFinished {
		snap.Winner = t.winnerName(s)
	}
	return snap
}
