package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions maps session identifiers to Views. Views idle longer than the TTL
// are dropped by Prune.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	newView func() *View
	now     func() time.Time
	logger  *slog.Logger
}

type sessionEntry struct {
	view     *View
	lastSeen time.Time
}

// NewSessions creates an empty registry. newView builds the View of each new
// session.
func NewSessions(ttl time.Duration, newView func() *View, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		newView: newView,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the View for id and refreshes its idle timer.
func (s *Sessions) Get(id string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.view, true
}

// Create registers a new View under a fresh random identifier.
func (s *Sessions) Create() (string, *View) {
	id := uuid.NewString()
	view := s.newView()

	s.mu.Lock()
	s.entries[id] = &sessionEntry{view: view, lastSeen: s.now()}
	s.mu.Unlock()

	return id, view
}

// GetOrCreate returns the View for id, creating a new session when id is
// unknown or malformed. created reports whether the returned id is new.
func (s *Sessions) GetOrCreate(id string) (string, *View, bool) {
	if _, err := uuid.Parse(id); err == nil {
		if v, ok := s.Get(id); ok {
			return id, v, false
		}
	}
	newID, v := s.Create()
	return newID, v, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Prune drops sessions idle for longer than the TTL and returns how many
// were removed. A non-positive TTL keeps sessions forever.
func (s *Sessions) Prune() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// RunPruner calls Prune every interval until ctx is cancelled.
func (s *Sessions) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				s.logger.Info("pruned idle dashboard sessions", "removed", n, "remaining", s.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
