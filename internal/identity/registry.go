// Package identity binds opaque client tokens to team names and tracks which
// token is the draft host.
package identity

import (
	"errors"
	"slices"
)

var ErrNameTaken = errors.New("team name already taken")
var ErrAlreadyRegistered = errors.New("you have already joined with a team")
var ErrTeamNotFound = errors.New("team not found")

type member struct {
	identity string
	team     string
}

// Registry keeps members in join order. The earliest remaining member
// inherits the host role when the host is removed.
type Registry struct {
	members []member
	host    string
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(identity, team string) error {
	if r.Has(team) {
		return ErrNameTaken
	}
	if _, ok := r.TeamOf(identity); ok {
		return ErrAlreadyRegistered
	}

	r.members = append(r.members, member{identity: identity, team: team})
	if r.host == "" {
		r.host = identity
	}
	return nil
}

// Remove drops the team and returns the identity that held it.
func (r *Registry) Remove(team string) (string, error) {
	i := slices.IndexFunc(r.members, func(m member) bool { return m.team == team })
	if i < 0 {
		return "", ErrTeamNotFound
	}
	removed := r.members[i].identity
	r.members = slices.Delete(r.members, i, i+1)

	if removed == r.host {
		r.host = ""
		if len(r.members) > 0 {
			r.host = r.members[0].identity
		}
	}
	return removed, nil
}

func (r *Registry) IsHost(identity string) bool {
	return identity != "" && identity == r.host
}

func (r *Registry) Host() string { return r.host }

func (r *Registry) TeamOf(identity string) (string, bool) {
	for _, m := range r.members {
		if m.identity == identity {
			return m.team, true
		}
	}
	return "", false
}

func (r *Registry) IdentityOf(team string) (string, bool) {
	for _, m := range r.members {
		if m.team == team {
			return m.identity, true
		}
	}
	return "", false
}

func (r *Registry) Has(team string) bool {
	return slices.ContainsFunc(r.members, func(m member) bool { return m.team == team })
}

// Teams returns team names in join order.
func (r *Registry) Teams() []string {
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.team)
	}
	return out
}

func (r *Registry) Len() int { return len(r.members) }
