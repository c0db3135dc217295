package roster

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
)

// Store accumulates drafted athletes per team.
type Store struct {
	rosters map[string][]catalog.Item
}

func NewStore() *Store {
	return &Store{rosters: make(map[string][]catalog.Item)}
}

// Create makes an empty roster so a team shows up before its first pick.
func (s *Store) Create(team string) {
	if _, ok := s.rosters[team]; !ok {
		s.rosters[team] = []catalog.Item{}
	}
}

func (s *Store) Assign(team string, item catalog.Item) {
	s.rosters[team] = append(s.rosters[team], item)
}

// RemoveTeam drops the roster. Its athletes are not returned to the pool.
func (s *Store) RemoveTeam(team string) {
	delete(s.rosters, team)
}

func (s *Store) Get(team string) []catalog.Item {
	return slices.Clone(s.rosters[team])
}

func (s *Store) All() map[string][]catalog.Item {
	out := make(map[string][]catalog.Item, len(s.rosters))
	for team, items := range s.rosters {
		out[team] = slices.Clone(items)
	}
	return out
}

func (s *Store) Teams() []string {
	return slices.Sorted(maps.Keys(s.rosters))
}
