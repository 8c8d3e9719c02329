// Package store holds the latest completed incident and warning snapshots.
// Readers never block and never observe a partially built snapshot.
package store

import (
	"sync/atomic"
	"time"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

// Snapshot is an immutable set of records as of UpdatedAt.
type Snapshot[T interface{ Key() string }] struct {
	Items     []T
	UpdatedAt time.Time
	byKey     map[string]int
}

func newSnapshot[T interface{ Key() string }](items []T, at time.Time) *Snapshot[T] {
	s := &Snapshot[T]{
		Items:     append([]T(nil), items...),
		UpdatedAt: at,
		byKey:     make(map[string]int, len(items)),
	}
	for i, item := range s.Items {
		if _, dup := s.byKey[item.Key()]; !dup {
			s.byKey[item.Key()] = i
		}
	}
	return s
}

// Get looks up a record by key.
func (s *Snapshot[T]) Get(key string) (T, bool) {
	i, ok := s.byKey[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.Items[i], true
}

// Len reports the number of records.
func (s *Snapshot[T]) Len() int { return len(s.Items) }

// Store publishes snapshots with atomic pointer swaps. The zero time marks a
// snapshot that has never been populated.
type Store struct {
	incidents atomic.Pointer[Snapshot[domain.Incident]]
	warnings  atomic.Pointer[Snapshot[domain.Warning]]
}

// New creates a store holding empty snapshots.
func New() *Store {
	s := &Store{}
	s.incidents.Store(newSnapshot[domain.Incident](nil, time.Time{}))
	s.warnings.Store(newSnapshot[domain.Warning](nil, time.Time{}))
	return s
}

// Incidents returns the current incident snapshot. Callers must not modify it.
func (s *Store) Incidents() *Snapshot[domain.Incident] { return s.incidents.Load() }

// Warnings returns the current warning snapshot. Callers must not modify it.
func (s *Store) Warnings() *Snapshot[domain.Warning] { return s.warnings.Load() }

// SwapIncidents publishes a new incident set and returns the one it replaced.
func (s *Store) SwapIncidents(items []domain.Incident, at time.Time) *Snapshot[domain.Incident] {
	return s.incidents.Swap(newSnapshot(items, at))
}

// SwapWarnings publishes a new warning set and returns the one it replaced.
func (s *Store) SwapWarnings(items []domain.Warning, at time.Time) *Snapshot[domain.Warning] {
	return s.warnings.Swap(newSnapshot(items, at))
}

// GetCurrentIncidents returns a copy of the current incidents.
func (s *Store) GetCurrentIncidents() []domain.Incident {
	return append([]domain.Incident(nil), s.Incidents().Items...)
}

// GetCurrentWarnings returns a copy of the current warnings. Location slices
// are copied too so callers can annotate them freely.
func (s *Store) GetCurrentWarnings() []domain.Warning {
	items := s.Warnings().Items
	out := make([]domain.Warning, len(items))
	for i, w := range items {
		w.Locations = append([]domain.WarningLocation(nil), w.Locations...)
		out[i] = w
	}
	return out
}
