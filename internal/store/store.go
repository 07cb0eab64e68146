// Package store keeps the canonical, insertion-ordered collection of one
// entity type together with its search projection.
package store

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/terra-clan/quiz-console/internal/models"
)

// Store is the canonical collection of one entity type. The projection is
// derived from the canonical collection on every write and every filter and
// is never mutated on its own.
type Store[T models.Entity] struct {
	mu         sync.RWMutex
	items      []T
	predicate  string
	projection []T
}

// New creates an empty store
func New[T models.Entity]() *Store[T] {
	return &Store[T]{}
}

// ReplaceAll swaps in a freshly fetched collection, keeping server order, and
// clears the search predicate
func (s *Store[T]) ReplaceAll(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]T(nil), items...)
	s.predicate = ""
	s.refreshLocked()
}

// Insert appends a created entity
func (s *Store[T]) Insert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	s.refreshLocked()
}

// ReplaceByID replaces the entity with the same id in place. An unknown id is
// a no-op; nothing is inserted.
func (s *Store[T]) ReplaceByID(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(s.items, func(it T) bool {
		return it.EntityID() == item.EntityID()
	})
	if !ok {
		return false
	}

	s.items[idx] = item
	s.refreshLocked()
	return true
}

// RemoveByID drops the entity with the given id. An unknown id is tolerated.
func (s *Store[T]) RemoveByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = lo.Reject(s.items, func(it T, _ int) bool {
		return it.EntityID() == id
	})
	s.refreshLocked()
	return len(s.items) != before
}

// ApplyFilter recomputes the projection as the entities whose search field
// contains p, ignoring case. An empty predicate passes everything.
func (s *Store[T]) ApplyFilter(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predicate = p
	s.refreshLocked()
}

// Predicate returns the last applied search predicate
func (s *Store[T]) Predicate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predicate
}

// Get retrieves an entity by id
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Find(s.items, func(it T) bool {
		return it.EntityID() == id
	})
}

// Items returns a copy of the canonical collection
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T{}, s.items...)
}

// Projection returns a copy of the current search projection
func (s *Store[T]) Projection() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T{}, s.projection...)
}

// Len returns the size of the canonical collection
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[T]) refreshLocked() {
	s.projection = Filter(s.items, s.predicate)
}

// Filter returns the items whose search field contains predicate, ignoring case
func Filter[T models.Entity](items []T, predicate string) []T {
	if predicate == "" {
		return append([]T{}, items...)
	}
	needle := strings.ToLower(predicate)
	return lo.Filter(items, func(it T, _ int) bool {
		return strings.Contains(strings.ToLower(it.SearchField()), needle)
	})
}
