// Package dedup drops webhook deliveries whose event id was seen recently.
package dedup

import "sync"

// DefaultCapacity is the number of event ids remembered per filter.
const DefaultCapacity = 100

// Filter remembers the last N admitted event ids. Once full, admitting a new
// id evicts the oldest inserted one (FIFO, lookups do not refresh entries).
//
// Ids are never persisted, so a redelivery after a restart is processed again.
type Filter struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

func New(capacity int) *Filter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Filter{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Admit reports whether the event should be processed. An empty id is always
// admitted because there is nothing to deduplicate on.
func (f *Filter) Admit(eventID string) bool {
	if eventID == "" {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.seen[eventID]; dup {
		return false
	}
	if len(f.order) >= f.capacity {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.seen, oldest)
	}
	f.order = append(f.order, eventID)
	f.seen[eventID] = struct{}{}
	return true
}

// Contains reports whether id is currently in the window.
func (f *Filter) Contains(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[eventID]
	return ok
}

func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
