package catalog

import (
	"errors"
	"slices"
)

var ErrNotAvailable = errors.New("athlete not available")

// Item is one athlete record from the rankings file.
type Item struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Team  string `json:"team"`
	Trend string `json:"trend"`
}

// Store holds the pool of athletes nobody has drafted yet.
// Take is the only way an item leaves the pool and nothing puts items back.
type Store struct {
	items []Item
}

func NewStore(items []Item) *Store {
	return &Store{items: slices.Clone(items)}
}

func (s *Store) Take(name string) (Item, error) {
	i := slices.IndexFunc(s.items, func(it Item) bool { return it.Name == name })
	if i < 0 {
		return Item{}, ErrNotAvailable
	}
	item := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	return item, nil
}

func (s *Store) Has(name string) bool {
	return slices.ContainsFunc(s.items, func(it Item) bool { return it.Name == name })
}

// Snapshot returns a copy of the pool in catalog order.
func (s *Store) Snapshot() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int { return len(s.items) }
