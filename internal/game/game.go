// Package game implements the round state machine:
// setup → loading → board → finished, with finished → setup on reset.
//
// The machine is synchronous and does no I/O. Presentation concerns (sound
// cues, animations) hang off the events it emits.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/tahaddi/internal/trivia"
)

type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseLoading  Phase = "loading"
	PhaseBoard    Phase = "board"
	PhaseFinished Phase = "finished"
)

var (
	ErrWrongPhase      = errors.New("action not allowed in current phase")
	ErrCategoryCount   = fmt.Errorf("exactly %d categories are required", trivia.CategoriesPerBoard)
	ErrDuplicate       = errors.New("duplicate category")
	ErrBoardIncomplete = errors.New("board is missing cells")
)

const (
	defaultTeam1 = "الفريق 1"
	defaultTeam2 = "الفريق 2"
	blankTeam1   = "الفريق الأول"
	blankTeam2   = "الفريق الثاني"
)

// Tie is returned by Winner when both teams have the same score.
const Tie = -1

type State struct {
	TeamNames          [2]string
	TeamScores         [2]int
	CurrentTeam        int // 0 or 1
	SelectedCategories []trivia.Category
	Questions          map[string]trivia.Question
	Phase              Phase
	ActiveQuestionID   string
}

func initialState() State {
	return State{
		TeamNames: [2]string{defaultTeam1, defaultTeam2},
		Questions: map[string]trivia.Question{},
		Phase:     PhaseSetup,
	}
}

type SelectOutcome int

const (
	SelectIgnored SelectOutcome = iota
	SelectOpened
	SelectOutOfStock
)

func (o SelectOutcome) String() string {
	switch o {
	case SelectOpened:
		return "opened"
	case SelectOutOfStock:
		return "out-of-stock"
	default:
		return "ignored"
	}
}

// Resolution describes an answered question.
type Resolution struct {
	QuestionID string
	Team       int
	Correct    bool
	Awarded    int
	Finished   bool
}

// Machine holds one round. It is not safe for concurrent use; callers
// serialise access.
type Machine struct {
	state     State
	listeners map[int]Listener
	nextID    int
}

func New() *Machine {
	return &Machine{
		state:     initialState(),
		listeners: make(map[int]Listener),
	}
}

// State returns a copy of the current state. The questions map is cloned.
func (m *Machine) State() State {
	s := m.state
	s.SelectedCategories = append([]trivia.Category(nil), m.state.SelectedCategories...)
	s.Questions = make(map[string]trivia.Question, len(m.state.Questions))
	for id, q := range m.state.Questions {
		s.Questions[id] = q
	}
	return s
}

func (m *Machine) Phase() Phase { return m.state.Phase }

// Start begins a round with two team names and the chosen categories.
func (m *Machine) Start(team1, team2 string, categories []trivia.Category) error {
	if m.state.Phase != PhaseSetup {
		return fmt.Errorf("start: %w", ErrWrongPhase)
	}
	if len(categories) != trivia.CategoriesPerBoard {
		return ErrCategoryCount
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if seen[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicate, c.ID)
		}
		seen[c.ID] = true
	}

	m.state = State{
		TeamNames:          [2]string{teamName(team1, blankTeam1), teamName(team2, blankTeam2)},
		SelectedCategories: append([]trivia.Category(nil), categories...),
		Questions:          map[string]trivia.Question{},
		Phase:              PhaseLoading,
	}
	m.emit(Event{Type: EventRoundStarted, Phase: PhaseLoading})
	return nil
}

func teamName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}

// BoardReady installs the provisioned questions and opens the board.
func (m *Machine) BoardReady(questions map[string]trivia.Question) error {
	if m.state.Phase != PhaseLoading {
		return fmt.Errorf("board ready: %w", ErrWrongPhase)
	}
	board := make(map[string]trivia.Question, len(m.state.SelectedCategories)*len(trivia.PointTiers))
	for _, c := range m.state.SelectedCategories {
		for _, p := range trivia.PointTiers {
			id := trivia.CellID(c.ID, p)
			q, ok := questions[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrBoardIncomplete, id)
			}
			board[id] = q
		}
	}
	m.state.Questions = board
	m.state.Phase = PhaseBoard
	m.emit(Event{Type: EventBoardReady, Phase: PhaseBoard})
	return nil
}

// Abort returns a loading round to setup, dropping any partial board.
func (m *Machine) Abort() {
	if m.state.Phase != PhaseLoading {
		return
	}
	names := m.state.TeamNames
	m.state = initialState()
	m.state.TeamNames = names
	m.emit(Event{Type: EventAborted, Phase: PhaseSetup})
}

// Select opens a cell for the current team.
func (m *Machine) Select(id string) SelectOutcome {
	if m.state.Phase != PhaseBoard || m.state.ActiveQuestionID != "" {
		return SelectIgnored
	}
	q, ok := m.state.Questions[id]
	if !ok {
		return SelectIgnored
	}
	switch q.Status {
	case trivia.StatusOutOfStock:
		m.emit(Event{Type: EventOutOfStock, Phase: PhaseBoard, QuestionID: id})
		return SelectOutOfStock
	case trivia.StatusUnplayed:
		m.state.ActiveQuestionID = id
		m.emit(Event{Type: EventQuestionOpened, Phase: PhaseBoard, QuestionID: id, Team: m.state.CurrentTeam})
		return SelectOpened
	default:
		return SelectIgnored
	}
}

// Answer resolves the active question. The boolean is false when there was
// nothing to answer.
func (m *Machine) Answer(correct bool) (Resolution, bool) {
	id := m.state.ActiveQuestionID
	if id == "" || m.state.Phase != PhaseBoard {
		return Resolution{}, false
	}
	q := m.state.Questions[id]
	team := m.state.CurrentTeam

	res := Resolution{QuestionID: id, Team: team, Correct: correct}
	if correct {
		q.Status = trivia.StatusAnsweredCorrect
		m.state.TeamScores[team] += q.Points
		res.Awarded = q.Points
	} else {
		q.Status = trivia.StatusAnsweredIncorrect
	}
	m.state.Questions[id] = q
	m.state.CurrentTeam = 1 - team
	m.state.ActiveQuestionID = ""

	m.emit(Event{
		Type:       EventAnswerResolved,
		Phase:      PhaseBoard,
		QuestionID: id,
		Team:       team,
		Correct:    correct,
		Points:     res.Awarded,
	})

	if m.complete() {
		m.state.Phase = PhaseFinished
		res.Finished = true
		m.emit(Event{Type: EventGameFinished, Phase: PhaseFinished, Winner: m.Winner()})
	}
	return res, true
}

// complete scans every cell rather than counting answers, so a replaced
// board is judged on its own contents.
func (m *Machine) complete() bool {
	for _, q := range m.state.Questions {
		if !q.Status.Resolved() {
			return false
		}
	}
	return true
}

// Reset discards the round and returns to setup.
func (m *Machine) Reset() {
	m.state = initialState()
	m.emit(Event{Type: EventReset, Phase: PhaseSetup})
}

// Winner returns the leading team index, or Tie.
func (m *Machine) Winner() int {
	switch s := m.state.TeamScores; {
	case s[0] > s[1]:
		return 0
	case s[1] > s[0]:
		return 1
	default:
		return Tie
	}
}
