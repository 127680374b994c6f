// Package play runs rounds for individual browsers. A Table couples one
// browser's session with a game state machine and provisions boards in the
// background.
package play

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/tahaddi/internal/auth"
	"github.com/playperu/tahaddi/internal/board"
	"github.com/playperu/tahaddi/internal/catalog"
	"github.com/playperu/tahaddi/internal/game"
	"github.com/playperu/tahaddi/internal/trivia"
)

var (
	ErrSignInRequired      = errors.New("sign in required")
	ErrCategoryUnavailable = errors.New("category has no remaining rounds")
)

const (
	msgConnecting      = "جاري الاتصال بالمخزن السحابي..."
	msgFetching        = "جاري سحب الأسئلة... %d%%"
	msgReady           = "تم تجهيز اللوحة!"
	msgProvisionFailed = "حدث خطأ أثناء جلب الأسئلة من المخزن."
	msgTie             = "تعادل خرافي!"
)

type Rounds interface {
	RemainingRounds(ctx context.Context, player trivia.Player) (map[string]int, error)
}

type Provisioner interface {
	Provision(ctx context.Context, player trivia.Player, categories []trivia.Category, progress board.Progress) (board.Result, error)
}

// Publisher delivers table events to whoever is watching a browser.
type Publisher func(tableID string, e Event)

type Deps struct {
	Catalog     *catalog.Catalog
	Rounds      Rounds
	Provisioner Provisioner
	Publish     Publisher
	Logger      *slog.Logger
}

type Table struct {
	id       string
	deps     Deps
	provider auth.SessionProvider
	logger   *slog.Logger
	stopAuth func()
	wg       sync.WaitGroup

	mu        sync.Mutex
	machine   *game.Machine
	round     int
	progress  int
	message   string
	shortages []string
	lastError string
	lastSeen  time.Time
}

func newTable(id string, deps Deps, provider auth.SessionProvider) *Table {
	t := &Table{
		id:       id,
		deps:     deps,
		provider: provider,
		logger:   deps.Logger.With("table", id),
		machine:  game.New(),
		lastSeen: time.Now(),
	}
	t.machine.Subscribe(t.forward)
	t.stopAuth = provider.OnChange(func(s *auth.Session) {
		e := Event{Type: EventSessionChanged, SignedIn: s != nil}
		t.publish(e)
	})
	return t
}

func (t *Table) ID() string { return t.id }

func (t *Table) publish(e Event) {
	if t.deps.Publish != nil {
		t.deps.Publish(t.id, e)
	}
}

// forward runs inside machine transitions, with t.mu held.
func (t *Table) forward(e game.Event) {
	t.publish(fromGame(e))
}

func (t *Table) touch() {
	t.lastSeen = time.Now()
}

// Categories lists the catalog with this player's remaining rounds. Guests
// and backend failures see every category as exhausted.
func (t *Table) Categories(ctx context.Context) []catalog.Availability {
	return t.deps.Catalog.Availability(t.rounds(ctx, auth.Identify(ctx, t.provider)))
}

func (t *Table) rounds(ctx context.Context, player trivia.Player) map[string]int {
	if player.IsGuest() {
		return map[string]int{}
	}
	rounds, err := t.deps.Rounds.RemainingRounds(ctx, player)
	if err != nil {
		t.logger.Error("fetching remaining rounds", "player", player.ID, "error", err)
		return map[string]int{}
	}
	return rounds
}

// Start validates the selection, moves the round to loading and provisions
// the board in the background. In-flight provisioning is not cancelled if
// the caller goes away.
func (t *Table) Start(ctx context.Context, team1, team2 string, categoryIDs []string) error {
	player := auth.Identify(ctx, t.provider)
	if player.IsGuest() {
		return ErrSignInRequired
	}
	if len(categoryIDs) != trivia.CategoriesPerBoard {
		return game.ErrCategoryCount
	}
	cats, err := t.deps.Catalog.Resolve(categoryIDs)
	if err != nil {
		return err
	}
	rounds := t.rounds(ctx, player)
	for _, c := range cats {
		if rounds[c.Name] <= 0 {
			return fmt.Errorf("%w: %s", ErrCategoryUnavailable, c.Name)
		}
	}

	t.mu.Lock()
	t.touch()
	if err := t.machine.Start(team1, team2, cats); err != nil {
		t.mu.Unlock()
		return err
	}
	t.round++
	round := t.round
	t.progress = 0
	t.message = msgConnecting
	t.shortages = nil
	t.lastError = ""
	t.mu.Unlock()

	t.logger.Info("round started", "player", player.ID, "categories", categoryIDs)

	t.wg.Add(1)
	go t.provision(context.WithoutCancel(ctx), round, player, cats)
	return nil
}

func (t *Table) provision(ctx context.Context, round int, player trivia.Player, cats []trivia.Category) {
	defer t.wg.Done()

	res, err := t.deps.Provisioner.Provision(ctx, player, cats, func(p int) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.round != round || t.machine.Phase() != game.PhaseLoading {
			return
		}
		t.progress = p
		t.message = fmt.Sprintf(msgFetching, p)
		t.publish(Event{Type: EventProgress, Phase: game.PhaseLoading, Progress: p, Message: t.message})
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.round != round || t.machine.Phase() != game.PhaseLoading {
		t.logger.Debug("dropping stale board", "round", round)
		return
	}
	if err == nil {
		err = t.machine.BoardReady(res.Questions)
	}
	if err != nil {
		t.logger.Error("provisioning board", "player", player.ID, "error", err)
		t.lastError = msgProvisionFailed
		t.progress = 0
		t.message = ""
		t.machine.Abort()
		return
	}

	if len(res.Shortages) > 0 {
		t.logger.Warn("stock shortages", "player", player.ID, "count", len(res.Shortages), "shortages", res.Shortages)
	}
	t.shortages = res.Shortages
	t.progress = 100
	t.message = msgReady
}

// Wait blocks until background provisioning has finished.
func (t *Table) Wait() {
	t.wg.Wait()
}

func (t *Table) Select(id string) game.SelectOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()
	return t.machine.Select(id)
}

func (t *Table) Answer(correct bool) (game.Resolution, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()
	res, ok := t.machine.Answer(correct)
	if ok && res.Finished {
		s := t.machine.State()
		t.logger.Info("round finished", "scores", s.TeamScores, "winner", t.winnerName(s))
	}
	return res, ok
}

func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()
	t.machine.Reset()
	t.progress = 0
	t.message = ""
	t.shortages = nil
	t.lastError = ""
}

func (t *Table) idleSince() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen, t.machine.Phase() == game.PhaseLoading
}

func (t *Table) close() {
	t.stopAuth()
}

func (t *Table) winnerName(s game.State) string {
	switch w := t.machine.Winner(); w {
	case game.Tie:
		return msgTie
	default:
		return s.TeamNames[w]
	}
}
