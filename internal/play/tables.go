package play

import (
	"sync"
	"time"

	"github.com/playperu/tahaddi/internal/auth"
)

// Tables holds one Table per browser session id.
type Tables struct {
	deps      Deps
	providers func(sid string) auth.SessionProvider

	mu     sync.RWMutex
	tables map[string]*Table
}

func NewTables(deps Deps, providers func(sid string) auth.SessionProvider) *Tables {
	return &Tables{
		deps:      deps,
		providers: providers,
		tables:    make(map[string]*Table),
	}
}

func (ts *Tables) Get(sid string) *Table {
	ts.mu.RLock()
	t, ok := ts.tables[sid]
	ts.mu.RUnlock()
	if ok {
		return t
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	// Double-check after acquiring write lock.
	if t, ok := ts.tables[sid]; ok {
		return t
	}
	t = newTable(sid, ts.deps, ts.providers(sid))
	ts.tables[sid] = t
	return t
}

func (ts *Tables) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tables)
}

// Sweep drops tables untouched for longer than idle. Tables still loading
// a board are kept.
func (ts *Tables) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	var n int
	for sid, t := range ts.tables {
		seen, loading := t.idleSince()
		if loading || seen.After(cutoff) {
			continue
		}
		t.close()
		delete(ts.tables, sid)
		n++
	}
	return n
}

// Wait blocks until every table's background provisioning has finished.
func (ts *Tables) Wait() {
	ts.mu.RLock()
	tables := make([]*Table, 0, len(ts.tables))
	for _, t := range ts.tables {
		tables = append(tables, t)
	}
	ts.mu.RUnlock()

	for _, t := range tables {
		t.Wait()
	}
}

func (ts *Tables) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for sid, t := range ts.tables {
		t.close()
		delete(ts.tables, sid)
	}
}
