package gateway

import (
	"maps"
	"sync"
	"time"
)

// EventMeter counts webhook deliveries per platform and classification.
type EventMeter struct {
	mu     sync.RWMutex
	meters map[string]*PlatformMeter
}

type PlatformMeter struct {
	Platform   string           `json:"platform"`
	Total      int64            `json:"total"`
	Duplicates int64            `json:"duplicates"`
	Rejected   int64            `json:"rejected"`
	ByKind     map[string]int64 `json:"by_kind"`
	LastEvent  time.Time        `json:"last_event,omitzero"`
}

func NewEventMeter() *EventMeter {
	return &EventMeter{meters: make(map[string]*PlatformMeter)}
}

func (m *EventMeter) meter(platform string) *PlatformMeter {
	pm, ok := m.meters[platform]
	if !ok {
		pm = &PlatformMeter{Platform: platform, ByKind: make(map[string]int64)}
		m.meters[platform] = pm
	}
	return pm
}

// Record counts one classified delivery.
func (m *EventMeter) Record(platform, kind string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm := m.meter(platform)
	pm.Total++
	pm.ByKind[kind]++
	pm.LastEvent = at
}

func (m *EventMeter) RecordDuplicate(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm := m.meter(platform)
	pm.Total++
	pm.Duplicates++
}

// RecordRejected counts deliveries refused for signature or body errors.
func (m *EventMeter) RecordRejected(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meter(platform).Rejected++
}

// Snapshot returns a deep copy of every platform's counters.
func (m *EventMeter) Snapshot() map[string]PlatformMeter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]PlatformMeter, len(m.meters))
	for name, pm := range m.meters {
		cp := *pm
		cp.ByKind = maps.Clone(pm.ByKind)
		out[name] = cp
	}
	return out
}
