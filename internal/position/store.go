package position

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Store is the exclusive owner of all Position records. The intake path
// inserts, the price monitor sweeps and mutates; both hold the lock only
// for the single operation, never across a network call.
//
// Positions are never removed: fully sold positions stay with a terminal
// status so the dashboard and exporter can show the full session history.
type Store struct {
	mu        sync.RWMutex
	positions []*Position
	nextID    uint64
	logger    *zap.Logger

	// Statistics (accessed atomically)
	inserts uint64
	sweeps  uint64
}

// NewStore creates an empty position store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Insert appends a position and assigns its ID. There is deliberately no
// uniqueness check on the mint: duplicate create notifications produce
// duplicate positions, matching the intake policy.
func (s *Store) Insert(pos *Position) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	pos.ID = s.nextID
	s.positions = append(s.positions, pos)
	atomic.AddUint64(&s.inserts, 1)

	s.logger.Debug("Position inserted",
		zap.Uint64("id", pos.ID),
		zap.String("mint", pos.MintAddress),
		zap.Int("total", len(s.positions)))

	return pos.ID
}

// ForEachOpen runs fn for every position with SoldPercentage < 100 under
// the exclusive lock. fn must not block on I/O; collect work inside and
// perform network calls after the sweep, applying results with Apply.
// Positions inserted while a sweep is running are seen by the next sweep.
func (s *Store) ForEachOpen(fn func(*Position)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	atomic.AddUint64(&s.sweeps, 1)
	for _, pos := range s.positions {
		if pos.SoldPercentage >= 100 {
			continue
		}
		fn(pos)
	}
}

// Apply mutates a single position by ID under the exclusive lock.
// Returns false when the ID is unknown.
func (s *Store) Apply(id uint64, fn func(*Position)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pos := range s.positions {
		if pos.ID == id {
			fn(pos)
			return true
		}
	}
	return false
}

// Get returns a copy of the position with the given ID.
func (s *Store) Get(id uint64) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pos := range s.positions {
		if pos.ID == id {
			return *pos, true
		}
	}
	return Position{}, false
}

// Snapshot returns copies of all positions in insertion order. Mutating
// the returned slice never touches the store.
func (s *Store) Snapshot() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		snapshot = append(snapshot, *pos)
	}
	return snapshot
}

// Len returns the total number of positions, open and closed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// OpenCount returns the number of positions still holding tokens.
func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := 0
	for _, pos := range s.positions {
		if pos.SoldPercentage < 100 {
			open++
		}
	}
	return open
}

// Stats returns operation counters for diagnostics.
func (s *Store) Stats() (inserts, sweeps uint64) {
	return atomic.LoadUint64(&s.inserts), atomic.LoadUint64(&s.sweeps)
}
