// Package store holds the in-memory index of currently active spots, keyed by
// (callsign, whole-kHz frequency). It is shared between the feed ingest path
// and the display/query path; every entry point serializes on one mutex so
// concurrent Add, Purge and Snapshot calls never observe a torn index.
package store

import (
	"sort"
	"sync"
	"time"

	"rbnvfd/spot"
)

// Store is the mutation-safe aggregation index. Filter parameters are
// independently settable at any time and take effect on the next call; there
// is no retroactive re-evaluation of entries already evicted.
type Store struct {
	mu     sync.Mutex
	spots  map[uint64]*spot.AggregatedSpot
	minSNR int
	maxAge time.Duration
}

// New creates a store with the given initial filter parameters.
func New(minSNR int, maxAge time.Duration) *Store {
	return &Store{
		spots:  make(map[uint64]*spot.AggregatedSpot),
		minSNR: minSNR,
		maxAge: maxAge,
	}
}

// SetMinSNR updates the ingest SNR gate.
func (s *Store) SetMinSNR(snr int) {
	s.mu.Lock()
	s.minSNR = snr
	s.mu.Unlock()
}

// SetMaxAge updates the eviction/query age gate.
func (s *Store) SetMaxAge(maxAge time.Duration) {
	s.mu.Lock()
	s.maxAge = maxAge
	s.mu.Unlock()
}

// MinSNR returns the current SNR gate.
func (s *Store) MinSNR() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minSNR
}

// MaxAge returns the current age gate.
func (s *Store) MaxAge() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxAge
}

// Add folds one raw spot into the index. Samples below the current SNR gate
// are rejected outright; otherwise the keyed entry is updated in place with
// the incremental-mean rule, or seeded when absent.
func (s *Store) Add(raw *spot.RawSpot) {
	if raw == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw.SNR < s.minSNR {
		return
	}
	key := spot.AggregateKey(raw.DXCall, raw.Frequency)
	if existing, ok := s.spots[key]; ok {
		existing.Update(raw)
		return
	}
	s.spots[key] = spot.NewAggregatedSpot(raw)
}

// Purge evicts every entry strictly older than the max-age gate. An entry
// whose age equals the gate exactly is retained; only age > maxAge evicts.
// The caller drives this periodically, typically every few seconds.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.spots {
		if now.Sub(entry.LastSeen) > s.maxAge {
			delete(s.spots, key)
			removed++
		}
	}
	return removed
}

// Snapshot returns a point-in-time copy of all entries passing the current
// SNR and age gates, ordered by frequency ascending with callsign breaking
// ties so the ordering is independent of map iteration.
func (s *Store) Snapshot(now time.Time) []spot.AggregatedSpot {
	s.mu.Lock()
	result := make([]spot.AggregatedSpot, 0, len(s.spots))
	for _, entry := range s.spots {
		if entry.HighestSNR < s.minSNR {
			continue
		}
		if now.Sub(entry.LastSeen) > s.maxAge {
			continue
		}
		result = append(result, *entry)
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency < result[j].Frequency
		}
		return result[i].Callsign < result[j].Callsign
	})
	return result
}

// Count returns the number of live entries, including any not yet purged.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spots)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.spots = make(map[uint64]*spot.AggregatedSpot)
	s.mu.Unlock()
}
