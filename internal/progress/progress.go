package progress

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Phase names the step a conversion is in.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseExtracting Phase = "extracting"
	PhaseConverting Phase = "converting"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

var allPhases = []Phase{PhaseFetching, PhaseExtracting, PhaseConverting, PhaseComplete, PhaseError}

// DefaultExpiry is how long an entry survives without updates.
const DefaultExpiry = time.Hour

// ParsePhase converts a string into a known Phase.
func ParsePhase(value string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(value)))
	return p, slices.Contains(allPhases, p)
}

// Terminal reports whether no further updates are expected.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// Entry is one conversion's latest report. Percent is 0..100.
type Entry struct {
	Key       string
	Phase     Phase
	Percent   float64
	Message   string
	Error     string
	UpdatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	expiry  time.Duration
	now     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store. A non-positive expiry uses DefaultExpiry.
func NewStore(expiry time.Duration, opts ...Option) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	s := &Store{
		entries: make(map[string]Entry),
		expiry:  expiry,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set records a report. Percent is clamped to 0..100. Within one phase the
// percent never goes backwards; entering a new phase resets it.
func (s *Store) Set(key string, phase Phase, percent float64, message string) Entry {
	if percent < 0 || math.IsNaN(percent) {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entries[key]
	if ok && prev.Phase == phase && percent < prev.Percent {
		percent = prev.Percent
	}
	e := Entry{
		Key:       key,
		Phase:     phase,
		Percent:   percent,
		Message:   message,
		UpdatedAt: s.now(),
	}
	s.entries[key] = e
	return e
}

// Complete marks key finished at 100%.
func (s *Store) Complete(key, message string) Entry {
	return s.Set(key, PhaseComplete, 100, message)
}

// Fail marks key failed and keeps the last percent for display.
func (s *Store) Fail(key string, err error) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	e.Key = key
	e.Phase = PhaseError
	if err != nil {
		e.Error = err.Error()
		e.Message = e.Error
	}
	e.UpdatedAt = s.now()
	s.entries[key] = e
	return e
}

// Get returns the entry for key. Expired entries are reported as missing.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// Delete forgets key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// List returns unexpired entries ordered by key.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !s.expired(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Prune removes expired entries and returns how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *Store) expired(e Entry) bool {
	return s.now().Sub(e.UpdatedAt) > s.expiry
}
