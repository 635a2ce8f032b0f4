package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no probe is recorded for a target.
	ErrNotFound = errors.New("no probe recorded for target")
)

// Probe is the outcome of one upstream availability check.
type Probe struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
	OK        bool      `json:"ok"`
	Status    int       `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	Breaker   string    `json:"breaker,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ProbeHistory holds a time-ordered list of probes for a target.
type ProbeHistory struct {
	Probes []Probe
}

// MemoryStore is a concurrency-safe in-memory probe history.
type MemoryStore struct {
	mu sync.RWMutex

	// key: target name
	data map[string]*ProbeHistory

	maxHistory int           // max number of probes per target
	maxAge     time.Duration // optional max age for probes

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ProbeHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a probe for its target and enforces retention.
func (s *MemoryStore) Save(p Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[p.Target]
	if !ok {
		history = &ProbeHistory{}
		s.data[p.Target] = history
	}

	history.Probes = append(history.Probes, p)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Probes) > s.maxHistory {
		over := len(history.Probes) - s.maxHistory
		history.Probes = history.Probes[over:]
	}

	// Enforce retention by age. The newest probe is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Probes)-1; i++ {
			if !history.Probes[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Probes = history.Probes[i:]
	}
}

// Latest returns the most recent probe for a target.
func (s *MemoryStore) Latest(target string) (Probe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[target]
	if !ok || len(history.Probes) == 0 {
		return Probe{}, ErrNotFound
	}
	return history.Probes[len(history.Probes)-1], nil
}

// Range returns all probes for a target between from and to (inclusive).
func (s *MemoryStore) Range(target string, from, to time.Time) ([]Probe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[target]
	if !ok || len(history.Probes) == 0 {
		return nil, ErrNotFound
	}

	var result []Probe
	for _, p := range history.Probes {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			result = append(result, p)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
