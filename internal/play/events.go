package play

import "github.com/playperu/tahaddi/internal/game"

const (
	EventProgress       = "progress"
	EventSessionChanged = "session_changed"
)

// Event is the payload pushed to a browser's event stream.
type Event struct {
	Type       string     `json:"type"`
	Phase      game.Phase `json:"phase,omitempty"`
	Progress   int        `json:"progress,omitempty"`
	Message    string     `json:"message,omitempty"`
	QuestionID string     `json:"questionId,omitempty"`
	Team       *int       `json:"team,omitempty"`
	Correct    bool       `json:"correct,omitempty"`
	Points     int        `json:"points,omitempty"`
	Winner     *int       `json:"winner,omitempty"`
	SignedIn   bool       `json:"signedIn,omitempty"`
}

func fromGame(e game.Event) Event {
	out := Event{
		Type:       string(e.Type),
		Phase:      e.Phase,
		QuestionID: e.QuestionID,
	}
	switch e.Type {
	case game.EventQuestionOpened:
		team := e.Team
		out.Team = &team
	case game.EventAnswerResolved:
		team := e.Team
		out.Team = &team
		out.Correct = e.Correct
		out.Points = e.Points
	case game.EventGameFinished:
		winner := e.Winner
		out.Winner = &winner
	}
	return out
}
