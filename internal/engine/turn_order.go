package engine

import (
	"math/rand/v2"
	"slices"
)

// Shuffler permutes team names in place before the snake order is built.
type Shuffler func(teams []string)

// UniformShuffle is a Fisher-Yates shuffle; every permutation is equally likely.
func UniformShuffle(teams []string) {
	rand.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
}

// BuildSnakeOrder lays out order forward on even rounds and reversed on odd ones.
func BuildSnakeOrder(order []string, rounds int) []string {
	out := make([]string, 0, len(order)*max(rounds, 0))
	reversed := slices.Clone(order)
	slices.Reverse(reversed)
	for r := 0; r < rounds; r++ {
		if r%2 == 0 {
			out = append(out, order...)
		} else {
			out = append(out, reversed...)
		}
	}
	return out
}

// Scheduler owns the draft order, the flattened pick order and the cursor.
type Scheduler struct {
	draftOrder []string
	pickOrder  []string
	cursor     int
	started    bool
	shuffle    Shuffler
}

func NewScheduler(shuffle Shuffler) *Scheduler {
	if shuffle == nil {
		shuffle = UniformShuffle
	}
	return &Scheduler{shuffle: shuffle}
}

// Build fixes the pick order. It is called once per session.
func (s *Scheduler) Build(teams []string, rounds int) {
	s.draftOrder = slices.Clone(teams)
	s.shuffle(s.draftOrder)
	s.pickOrder = BuildSnakeOrder(s.draftOrder, rounds)
	s.cursor = 0
	s.started = true
}

func (s *Scheduler) Started() bool { return s.started }

// Complete reports whether every slot of a built order has been used.
func (s *Scheduler) Complete() bool {
	return s.started && s.cursor >= len(s.pickOrder)
}

func (s *Scheduler) Cursor() int { return s.cursor }

func (s *Scheduler) Current() (string, bool) { return s.at(s.cursor) }

func (s *Scheduler) Next() (string, bool) { return s.at(s.cursor + 1) }

func (s *Scheduler) at(i int) (string, bool) {
	if i < 0 || i >= len(s.pickOrder) {
		return "", false
	}
	return s.pickOrder[i], true
}

func (s *Scheduler) Advance() {
	if s.cursor < len(s.pickOrder) {
		s.cursor++
	}
}

// Prune drops every slot that belongs to team. Positions after the removed
// slots shift left and the cursor is only clamped, so the team that picks
// next can differ from a perfect renumbering. A finished draft stays finished.
func (s *Scheduler) Prune(team string) {
	wasComplete := s.Complete()
	isTeam := func(t string) bool { return t == team }
	s.draftOrder = slices.DeleteFunc(s.draftOrder, isTeam)
	s.pickOrder = slices.DeleteFunc(s.pickOrder, isTeam)

	switch {
	case wasComplete:
		// Not the min(cursor, len-1) clamp: that would hand the last slot
		// back to a team after draft_results went out.
		s.cursor = len(s.pickOrder)
	case len(s.pickOrder) > 0:
		s.cursor = min(s.cursor, len(s.pickOrder)-1)
	default:
		s.cursor = 0
	}
}

func (s *Scheduler) DraftOrder() []string { return nonNil(slices.Clone(s.draftOrder)) }

func (s *Scheduler) PickOrder() []string { return nonNil(slices.Clone(s.pickOrder)) }

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
