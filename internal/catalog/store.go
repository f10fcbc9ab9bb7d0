package catalog

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/starford/sowilo/internal/apperr"
)

// record is the internal representation of a wallpaper. Counters live
// outside the metadata struct so they can be incremented atomically while
// readers hold only the store's read lock.
type record struct {
	meta      Wallpaper
	views     atomic.Int64
	downloads atomic.Int64
	favorites atomic.Int64
}

func newRecord(w Wallpaper) *record {
	r := &record{meta: w}
	r.meta.Views, r.meta.Downloads, r.meta.Favorites = 0, 0, 0
	r.views.Store(w.Views)
	r.downloads.Store(w.Downloads)
	r.favorites.Store(w.Favorites)
	return r
}

// snapshot returns a copy of the record with current counter values.
func (r *record) snapshot() Wallpaper {
	w := r.meta
	w.Tags = append([]string(nil), r.meta.Tags...)
	w.Colors = append([]string(nil), r.meta.Colors...)
	w.Views = r.views.Load()
	w.Downloads = r.downloads.Load()
	w.Favorites = r.favorites.Load()
	return w
}

// Store owns the in-memory wallpaper collection. All mutation goes through
// its methods; the map shape is guarded by mu, counters by atomics. Every
// mutation marks the store dirty for the persister (see persist.go).
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	logger  *slog.Logger

	dirty chan struct{}
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[string]*record),
		logger:  logger,
		dirty:   make(chan struct{}, 1),
	}
}

// Load replaces the store contents with a persisted snapshot. Counters are
// restored as-is. Intended for startup, before any concurrent access.
func (s *Store) Load(ws []Wallpaper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*record, len(ws))
	for _, w := range ws {
		s.records[w.ID] = newRecord(w)
	}
}

// Upsert inserts w or, when a record with the same id exists, merges its
// mutable metadata while preserving the stored creation time and counters.
// Returns true when the record is new.
func (s *Store) Upsert(w Wallpaper) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[w.ID]
	if ok {
		w.CreatedAt = existing.meta.CreatedAt
		next := newRecord(w)
		next.views.Store(existing.views.Load())
		next.downloads.Store(existing.downloads.Load())
		next.favorites.Store(existing.favorites.Load())
		s.records[w.ID] = next
	} else {
		s.records[w.ID] = newRecord(w)
	}

	s.markDirty()
	return !ok
}

// Remove deletes a record by id. Returns false when the id is absent.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	s.markDirty()
	return true
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (Wallpaper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Wallpaper{}, apperr.ErrNotFound
	}
	return r.snapshot(), nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Increment atomically adds 1 to the named counter and returns the new value.
// The read lock is held across the add: increments still run concurrently
// with each other, while Upsert's write lock cannot swap the record out from
// under an in-flight add.
func (s *Store) Increment(id string, c Counter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return 0, apperr.ErrNotFound
	}

	var n int64
	switch c {
	case CounterViews:
		n = r.views.Add(1)
	case CounterDownloads:
		n = r.downloads.Add(1)
	case CounterFavorites:
		n = r.favorites.Add(1)
	default:
		return 0, apperr.ErrNotFound
	}

	s.markDirty()
	return n, nil
}

// All returns copies of every record in the canonical listing order:
// newest first, ties broken by id.
func (s *Store) All() []Wallpaper {
	s.mu.RLock()
	out := make([]Wallpaper, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// markDirty signals the persister without blocking. Callers hold at least
// a read lock, so the channel is buffered.
func (s *Store) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}
