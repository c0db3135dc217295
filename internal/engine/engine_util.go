package engine

import (
	"cmp"
	"slices"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusDrafting Status = "drafting"
	StatusComplete Status = "complete"
)

// StateView is what one identity sees: the shared draft state plus its own
// team and host flag.
type StateView struct {
	UserID            string                    `json:"user_id"`
	TeamName          *string                   `json:"team_name"`
	IsHost            bool                      `json:"is_host"`
	Status            Status                    `json:"status"`
	DraftStarted      bool                      `json:"draft_started"`
	DraftComplete     bool                      `json:"draft_complete"`
	DraftOrder        []string                  `json:"draft_order"`
	PickOrder         []string                  `json:"pick_order"`
	CurrentPickIndex  int                       `json:"current_pick_index"`
	TeamRosters       map[string][]catalog.Item `json:"team_rosters"`
	AvailableAthletes []catalog.Item            `json:"available_athletes"`
	Teams             []string                  `json:"teams"`
	CurrentTeam       *string                   `json:"current_team"`
	NextTeam          *string                   `json:"next_team"`
}

func (s *Session) Status() Status {
	switch {
	case !s.sched.Started():
		return StatusLobby
	case s.sched.Complete():
		return StatusComplete
	default:
		return StatusDrafting
	}
}

// Snapshot projects every store into a view for identity. It does not mutate.
func (s *Session) Snapshot(identity string) StateView {
	team, _ := s.registry.TeamOf(identity)
	current, _ := s.sched.Current()
	next, _ := s.sched.Next()

	return StateView{
		UserID:            identity,
		TeamName:          optional(team),
		IsHost:            s.registry.IsHost(identity),
		Status:            s.Status(),
		DraftStarted:      s.sched.Started(),
		DraftComplete:     s.sched.Complete(),
		DraftOrder:        s.sched.DraftOrder(),
		PickOrder:         s.sched.PickOrder(),
		CurrentPickIndex:  s.sched.Cursor(),
		TeamRosters:       s.rosters.All(),
		AvailableAthletes: s.pool.Snapshot(),
		Teams:             s.registry.Teams(),
		CurrentTeam:       optional(current),
		NextTeam:          optional(next),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type TeamProjection struct {
	Team   string `json:"team"`
	Points int    `json:"points"`
}

// ProjectRankings scores each roster by inverse rank: the best ranked of
// catalogSize athletes is worth catalogSize points, the worst is worth 1.
// Unranked athletes score nothing.
func ProjectRankings(teams []string, rosters map[string][]catalog.Item, catalogSize int) []TeamProjection {
	out := make([]TeamProjection, 0, len(teams))
	for _, team := range teams {
		p := TeamProjection{Team: team}
		for _, it := range rosters[team] {
			if it.Rank > 0 {
				p.Points += max(catalogSize+1-it.Rank, 0)
			}
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b TeamProjection) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Team, b.Team)
	})
	return out
}
