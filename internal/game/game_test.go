package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playperu/tahaddi/internal/trivia"
)

func testCategories() []trivia.Category {
	cats := make([]trivia.Category, 0, trivia.CategoriesPerBoard)
	for i := range trivia.CategoriesPerBoard {
		id := fmt.Sprintf("cat%d", i)
		cats = append(cats, trivia.Category{ID: id, Name: "فئة " + id, Group: "عام"})
	}
	return cats
}

func fullBoard(cats []trivia.Category) map[string]trivia.Question {
	qs := make(map[string]trivia.Question)
	for _, c := range cats {
		for _, p := range trivia.PointTiers {
			id := trivia.CellID(c.ID, p)
			qs[id] = trivia.Question{ID: id, CategoryID: c.ID, Points: p, Status: trivia.StatusUnplayed}
		}
	}
	return qs
}

func boardMachine(t *testing.T) *Machine {
	t.Helper()
	m := New()
	cats := testCategories()
	if err := m.Start("النسور", "الصقور", cats); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.BoardReady(fullBoard(cats)); err != nil {
		t.Fatalf("board ready: %v", err)
	}
	return m
}

func TestStart(t *testing.T) {
	m := New()
	if err := m.Start("  ", "", testCategories()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s := m.State()
	if s.Phase != PhaseLoading {
		t.Errorf("phase = %q, want loading", s.Phase)
	}
	if s.TeamNames != [2]string{blankTeam1, blankTeam2} {
		t.Errorf("team names = %v", s.TeamNames)
	}
	if s.CurrentTeam != 0 {
		t.Errorf("current team = %d, want 0", s.CurrentTeam)
	}

	if err := m.Start("a", "b", testCategories()); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("second start err = %v, want ErrWrongPhase", err)
	}
}

func TestStartValidation(t *testing.T) {
	cats := testCategories()
	dup := append([]trivia.Category(nil), cats...)
	dup[4] = dup[0]

	tests := []struct {
		name string
		cats []trivia.Category
		want error
	}{
		{"too few", cats[:4], ErrCategoryCount},
		{"too many", append(cats, trivia.Category{ID: "x"}), ErrCategoryCount},
		{"duplicate", dup, ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			if err := m.Start("a", "b", tt.cats); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if m.Phase() != PhaseSetup {
				t.Errorf("phase = %q, want setup", m.Phase())
			}
		})
	}
}

func TestBoardReadyRequiresEveryCell(t *testing.T) {
	m := New()
	cats := testCategories()
	m.Start("a", "b", cats)

	qs := fullBoard(cats)
	delete(qs, trivia.CellID(cats[2].ID, 300))
	if err := m.BoardReady(qs); !errors.Is(err, ErrBoardIncomplete) {
		t.Fatalf("err = %v, want ErrBoardIncomplete", err)
	}
	if m.Phase() != PhaseLoading {
		t.Errorf("phase = %q, want loading", m.Phase())
	}

	if err := m.BoardReady(fullBoard(cats)); err != nil {
		t.Fatalf("board ready: %v", err)
	}
	if got := len(m.State().Questions); got != 25 {
		t.Errorf("questions = %d, want 25", got)
	}
}

func TestSelectOnlyInBoard(t *testing.T) {
	m := New()
	if got := m.Select("cat0-100"); got != SelectIgnored {
		t.Errorf("select in setup = %v, want ignored", got)
	}
	if _, ok := m.Answer(true); ok {
		t.Error("answer without active question should be a no-op")
	}
}

func TestAnswerScoresAndAlternates(t *testing.T) {
	m := boardMachine(t)

	if got := m.Select("cat0-300"); got != SelectOpened {
		t.Fatalf("select = %v, want opened", got)
	}
	res, ok := m.Answer(true)
	if !ok || res.Awarded != 300 || res.Team != 0 {
		t.Fatalf("resolution = %+v, ok=%v", res, ok)
	}
	s := m.State()
	if s.TeamScores != [2]int{300, 0} {
		t.Errorf("scores = %v, want [300 0]", s.TeamScores)
	}
	if s.CurrentTeam != 1 {
		t.Errorf("current team = %d, want 1", s.CurrentTeam)
	}
	if s.ActiveQuestionID != "" {
		t.Errorf("active question = %q, want empty", s.ActiveQuestionID)
	}

	m.Select("cat1-500")
	m.Answer(false)
	s = m.State()
	if s.TeamScores != [2]int{300, 0} {
		t.Errorf("incorrect answer changed scores: %v", s.TeamScores)
	}
	if s.CurrentTeam != 0 {
		t.Errorf("current team = %d, want 0 after wrong answer", s.CurrentTeam)
	}
	if s.Questions["cat1-500"].Status != trivia.StatusAnsweredIncorrect {
		t.Errorf("status = %q", s.Questions["cat1-500"].Status)
	}
}

func TestSelectResolvedCellIsNoop(t *testing.T) {
	m := boardMachine(t)
	m.Select("cat0-100")
	m.Answer(true)
	m.Select("cat0-200")
	m.Answer(false)

	for _, id := range []string{"cat0-100", "cat0-200"} {
		if got := m.Select(id); got != SelectIgnored {
			t.Errorf("select %s = %v, want ignored", id, got)
		}
		if m.State().ActiveQuestionID != "" {
			t.Errorf("select %s changed the active question", id)
		}
	}
}

func TestSelectOutOfStock(t *testing.T) {
	m := New()
	cats := testCategories()
	m.Start("a", "b", cats)
	qs := fullBoard(cats)
	q := qs["cat3-400"]
	q.Status = trivia.StatusOutOfStock
	qs["cat3-400"] = q
	m.BoardReady(qs)

	var events []EventType
	m.Subscribe(func(e Event) { events = append(events, e.Type) })

	if got := m.Select("cat3-400"); got != SelectOutOfStock {
		t.Fatalf("select = %v, want out-of-stock", got)
	}
	if m.State().ActiveQuestionID != "" {
		t.Error("out-of-stock cell must not open")
	}
	if len(events) != 1 || events[0] != EventOutOfStock {
		t.Errorf("events = %v", events)
	}
}

func TestFinishesOnlyWhenAllResolved(t *testing.T) {
	m := New()
	cats := testCategories()
	m.Start("a", "b", cats)
	qs := fullBoard(cats)
	// Two shortages count as resolved.
	for _, id := range []string{"cat4-100", "cat4-200"} {
		q := qs[id]
		q.Status = trivia.StatusOutOfStock
		qs[id] = q
	}
	m.BoardReady(qs)

	var finished int
	m.Subscribe(func(e Event) {
		if e.Type == EventGameFinished {
			finished++
		}
	})

	remaining := 23
	team := 0
	for _, c := range cats {
		for _, p := range trivia.PointTiers {
			id := trivia.CellID(c.ID, p)
			if m.Select(id) != SelectOpened {
				continue
			}
			if m.State().CurrentTeam != team {
				t.Fatalf("turn did not alternate at %s", id)
			}
			res, _ := m.Answer(p%200 == 0)
			remaining--
			team = 1 - team
			if res.Finished != (remaining == 0) {
				t.Fatalf("finished=%v with %d remaining", res.Finished, remaining)
			}
		}
	}

	if m.Phase() != PhaseFinished {
		t.Fatalf("phase = %q, want finished", m.Phase())
	}
	if finished != 1 {
		t.Errorf("game_finished emitted %d times", finished)
	}
	if got := m.Select("cat0-100"); got != SelectIgnored {
		t.Errorf("select after finish = %v", got)
	}
}

func TestResetAfterFinished(t *testing.T) {
	m := New()
	cats := testCategories()
	m.Start("a", "b", cats)
	m.BoardReady(fullBoard(cats))
	for id := range m.State().Questions {
		m.Select(id)
		m.Answer(true)
	}
	if m.Phase() != PhaseFinished {
		t.Fatalf("phase = %q, want finished", m.Phase())
	}

	m.Reset()
	s := m.State()
	if s.Phase != PhaseSetup || s.TeamScores != [2]int{} || len(s.Questions) != 0 {
		t.Errorf("state after reset = %+v", s)
	}
}

func TestAbort(t *testing.T) {
	m := New()
	m.Start("أ", "ب", testCategories())
	m.Abort()
	s := m.State()
	if s.Phase != PhaseSetup {
		t.Errorf("phase = %q, want setup", s.Phase)
	}
	if len(s.SelectedCategories) != 0 || len(s.Questions) != 0 {
		t.Error("abort kept partial round data")
	}
	if s.TeamNames != [2]string{"أ", "ب"} {
		t.Errorf("team names = %v", s.TeamNames)
	}
}

func TestWinner(t *testing.T) {
	m := boardMachine(t)
	if got := m.Winner(); got != Tie {
		t.Errorf("winner = %d, want tie", got)
	}
	m.Select("cat0-100")
	m.Answer(false)
	m.Select("cat0-200")
	m.Answer(true)
	if got := m.Winner(); got != 1 {
		t.Errorf("winner = %d, want 1", got)
	}
}

func TestSubscribeCancel(t *testing.T) {
	m := New()
	var n int
	cancel := m.Subscribe(func(Event) { n++ })
	m.Reset()
	cancel()
	m.Reset()
	if n != 1 {
		t.Errorf("listener called %d times, want 1", n)
	}
}
