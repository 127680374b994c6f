// Package board provisions a full question grid for a round from the
// inventory service.
//
// A single batch call is tried first. If that call fails outright, every cell
// is fetched on its own, concurrently. Cells the inventory cannot fill become
// out-of-stock placeholders so the board is always complete.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/tahaddi/internal/inventory"
	"github.com/playperu/tahaddi/internal/trivia"
)

// Inventory is the subset of the inventory client the provisioner needs.
type Inventory interface {
	GameBoard(ctx context.Context, player trivia.Player, categories []string) ([]inventory.Row, error)
	NextQuestion(ctx context.Context, player trivia.Player, category string, points int) (*inventory.Row, error)
}

var ErrInvalidCategories = errors.New("invalid category selection")

// Progress receives completion estimates in [0,100], never decreasing.
type Progress func(percent int)

type Result struct {
	Questions map[string]trivia.Question
	Shortages []string
}

type Options struct {
	// CallTimeout bounds each inventory call. Zero means no limit.
	CallTimeout time.Duration
	// Concurrency bounds the per-cell fallback. Zero means one task per cell.
	Concurrency int
}

type Provisioner struct {
	inv    Inventory
	opts   Options
	logger *slog.Logger
}

func NewProvisioner(inv Inventory, opts Options, logger *slog.Logger) *Provisioner {
	return &Provisioner{inv: inv, opts: opts, logger: logger}
}

// Provision builds the board for exactly five distinct categories.
func (p *Provisioner) Provision(ctx context.Context, player trivia.Player, categories []trivia.Category, progress Progress) (Result, error) {
	if err := validate(categories); err != nil {
		return Result{}, err
	}

	report := newReporter(progress)
	report.set(5)

	res, err := p.batch(ctx, player, categories)
	if err != nil {
		p.logger.Warn("batch board fetch failed, falling back to single cells",
			"player", player.ID,
			"error", err,
		)
		res, err = p.fallback(ctx, player, categories, report)
		if err != nil {
			return Result{}, err
		}
	} else {
		report.set(50)
	}

	report.set(100)
	return res, nil
}

func validate(categories []trivia.Category) error {
	if len(categories) != trivia.CategoriesPerBoard {
		return fmt.Errorf("%w: got %d categories, want %d", ErrInvalidCategories, len(categories), trivia.CategoriesPerBoard)
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("%w: category without id or name", ErrInvalidCategories)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate category %s", ErrInvalidCategories, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

func (p *Provisioner) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.CallTimeout)
}

// batch matches rows back to cells by category name and point tier. Missing
// cells are recorded as shortages and filled with placeholders; they are not
// retried individually.
func (p *Provisioner) batch(ctx context.Context, player trivia.Player, categories []trivia.Category) (Result, error) {
	names := make([]string, len(categories))
	byName := make(map[string]trivia.Category, len(categories))
	for i, c := range categories {
		names[i] = c.Name
		byName[c.Name] = c
	}

	callCtx, cancel := p.callCtx(ctx)
	defer cancel()
	rows, err := p.inv.GameBoard(callCtx, player, names)
	if err != nil {
		return Result{}, err
	}

	fetched := make(map[string]inventory.Row, len(rows))
	for _, row := range rows {
		c, ok := byName[row.Category]
		if !ok {
			continue
		}
		id := trivia.CellID(c.ID, int(row.Points))
		if _, dup := fetched[id]; !dup {
			fetched[id] = row
		}
	}

	res := newResult(len(categories))
	for _, c := range categories {
		for _, points := range trivia.PointTiers {
			id := trivia.CellID(c.ID, points)
			if row, ok := fetched[id]; ok {
				res.Questions[id] = mapRow(row, c, points)
				continue
			}
			res.addShortage(c, points)
		}
	}
	return res, nil
}

type cell struct {
	category trivia.Category
	points   int
	question *trivia.Question
}

// fallback fetches every cell on its own and waits for all of them.
func (p *Provisioner) fallback(ctx context.Context, player trivia.Player, categories []trivia.Category, report *reporter) (Result, error) {
	cells := make([]cell, 0, len(categories)*len(trivia.PointTiers))
	for _, c := range categories {
		for _, points := range trivia.PointTiers {
			cells = append(cells, cell{category: c, points: points})
		}
	}

	total := len(cells)
	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i := range cells {
		g.Go(func() error {
			c := &cells[i]
			c.question = p.single(gctx, player, c.category, c.points)

			mu.Lock()
			completed++
			report.set(10 + completed*85/total)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("provisioning board: %w", err)
	}

	res := newResult(len(categories))
	for _, c := range cells {
		if c.question != nil {
			res.Questions[c.question.ID] = *c.question
			continue
		}
		res.addShortage(c.category, c.points)
	}
	return res, nil
}

// single never fails: errors and empty responses come back as nil.
func (p *Provisioner) single(ctx context.Context, player trivia.Player, c trivia.Category, points int) *trivia.Question {
	callCtx, cancel := p.callCtx(ctx)
	defer cancel()

	row, err := p.inv.NextQuestion(callCtx, player, c.Name, points)
	if err != nil {
		p.logger.Debug("single cell fetch failed", "category", c.Name, "points", points, "error", err)
		return nil
	}
	if row == nil {
		return nil
	}
	q := mapRow(*row, c, points)
	return &q
}

func newResult(categories int) Result {
	return Result{
		Questions: make(map[string]trivia.Question, categories*len(trivia.PointTiers)),
	}
}

func (r *Result) addShortage(c trivia.Category, points int) {
	q := Placeholder(c, points)
	r.Questions[q.ID] = q
	r.Shortages = append(r.Shortages, ShortageMessage(c, points))
}

// Placeholder is the cell used when the inventory has no question left.
func Placeholder(c trivia.Category, points int) trivia.Question {
	return trivia.Question{
		ID:           trivia.CellID(c.ID, points),
		CategoryID:   c.ID,
		Points:       points,
		QuestionText: fmt.Sprintf("عذراً، نفد مخزون الأسئلة لهذه الفئة (%d)", points),
		AnswerText:   "تجاوز",
		Status:       trivia.StatusOutOfStock,
	}
}

func ShortageMessage(c trivia.Category, points int) string {
	return fmt.Sprintf("نقص: %s (%d)", c.Name, points)
}

const (
	missingQuestion = "سؤال مفقود"
	missingAnswer   = "إجابة مفقودة"
)

func mapRow(row inventory.Row, c trivia.Category, points int) trivia.Question {
	q := trivia.Question{
		ID:           trivia.CellID(c.ID, points),
		CategoryID:   c.ID,
		Points:       points,
		QuestionText: row.Text(),
		AnswerText:   row.AnswerValue(),
		Status:       trivia.StatusUnplayed,
		Sources:      row.Sources,
	}
	if q.QuestionText == "" {
		q.QuestionText = missingQuestion
	}
	if q.AnswerText == "" {
		q.AnswerText = missingAnswer
	}
	q.IsEnumeration = strings.Contains(c.ID, "list") || strings.Contains(row.QuestionText, "عدد")

	if url := row.Media(); url != "" {
		q.Media = &trivia.Media{Kind: trivia.ParseMediaKind(row.MediaType), URL: url}
	}
	return q
}

// reporter serialises progress callbacks and drops values that would move
// the bar backwards.
type reporter struct {
	mu   sync.Mutex
	fn   Progress
	last int
}

func newReporter(fn Progress) *reporter {
	return &reporter{fn: fn, last: -1}
}

func (r *reporter) set(percent int) {
	if r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent <= r.last {
		return
	}
	r.last = percent
	r.fn(percent)
}
