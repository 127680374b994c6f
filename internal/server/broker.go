package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/tahaddi/internal/play"
)

// Broker is an in-process pub/sub for table events, keyed by browser sid.
// Each subscriber is one open SSE or WebSocket stream.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for sid.
func (b *Broker) Subscribe(sid string) chan []byte {
	ch := make(chan []byte, 32)
	b.mu.Lock()
	if b.subs[sid] == nil {
		b.subs[sid] = make(map[chan []byte]struct{})
	}
	b.subs[sid][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(sid string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sid], ch)
	if len(b.subs[sid]) == 0 {
		delete(b.subs, sid)
	}
	b.mu.Unlock()
}

// Publish fans an event out to every stream open for sid. It never blocks;
// slow subscribers miss events and resync from /api/game/state.
func (b *Broker) Publish(sid string, e play.Event) {
	data, _ := json.Marshal(e)
	b.mu.RLock()
	for ch := range b.subs[sid] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}
