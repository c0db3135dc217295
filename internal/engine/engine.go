package engine

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/identity"
	"github.com/DoyleJ11/athlete-draft/internal/roster"
)

var ErrNotRegistered = errors.New("join the draft with a team first")
var ErrNotYourTurn = errors.New("it is not your turn")
var ErrDraftAlreadyStarted = errors.New("the draft has already started")
var ErrDraftNotActive = errors.New("the draft has not started")
var ErrDraftComplete = errors.New("the draft is complete")
var ErrNotHost = errors.New("only the host can do that")
var ErrNoTeams = errors.New("no teams have joined the draft")
var ErrInvalidRequest = errors.New("invalid request")
var ErrUnsupportedCommand = errors.New("unsupported command")

var (
	ErrNameTaken           = identity.ErrNameTaken
	ErrAlreadyRegistered   = identity.ErrAlreadyRegistered
	ErrTeamNotFound        = identity.ErrTeamNotFound
	ErrAthleteNotAvailable = catalog.ErrNotAvailable
)

const DefaultRounds = 7

const maxTeamNameLen = 64

type CommandType string

const (
	CmdJoinDraft   CommandType = "join_draft"
	CmdStartDraft  CommandType = "start_draft"
	CmdMakePick    CommandType = "make_pick"
	CmdKickTeam    CommandType = "kick_team"
	CmdRejoinDraft CommandType = "rejoin_draft"
)

/*
	CmdJoinDraft   -> joined_draft (caller) -> update_teams -> state_update
	CmdStartDraft  -> draft_started -> state_update
	CmdMakePick    -> state_update -> pick_made (caller) [-> draft_results]
	CmdKickTeam    -> kicked (kicked identity) -> team_kicked -> state_update
	CmdRejoinDraft -> rejoined_draft (caller) -> state_update (caller)
*/

type Command struct {
	Type        CommandType
	Identity    string
	TeamName    string
	AthleteName string
}

type EventType string

const (
	EvtStateUpdate   EventType = "state_update"
	EvtDraftStarted  EventType = "draft_started"
	EvtUpdateTeams   EventType = "update_teams"
	EvtTeamKicked    EventType = "team_kicked"
	EvtJoinedDraft   EventType = "joined_draft"
	EvtRejoinedDraft EventType = "rejoined_draft"
	EvtPickMade      EventType = "pick_made"
	EvtKicked        EventType = "kicked"
	EvtDraftResults  EventType = "draft_results"
)

// Target says who an event is delivered to.
type Target int

const (
	ToAll Target = iota
	ToCaller
	ToIdentity
)

// Event is something the lobby has to deliver. A state_update carries no
// payload because every recipient gets its own StateView.
type Event struct {
	Type     EventType
	Target   Target
	Identity string
	Payload  any
}

type JoinedDraft struct {
	TeamName string   `json:"team_name"`
	UserID   string   `json:"user_id"`
	IsHost   bool     `json:"is_host"`
	Teams    []string `json:"teams"`
}

type RejoinedDraft struct {
	TeamName     *string `json:"team_name"`
	UserID       string  `json:"user_id"`
	IsHost       bool    `json:"is_host"`
	DraftStarted bool    `json:"draft_started"`
}

type DraftStarted struct {
	DraftOrder []string `json:"draft_order"`
	PickOrder  []string `json:"pick_order"`
}

type TeamsUpdate struct {
	Teams []string `json:"teams"`
}

type PickMade struct {
	Success bool           `json:"success"`
	Athlete catalog.Item   `json:"athlete"`
	Roster  []catalog.Item `json:"roster"`
}

type Kicked struct {
	TeamName string `json:"team_name"`
}

type DraftResults struct {
	TeamRosters       map[string][]catalog.Item `json:"team_rosters"`
	ProjectedRankings []TeamProjection          `json:"projected_rankings"`
}

// Session is one draft: registry, pool, rosters and schedule. It is not safe
// for concurrent use; the lobby goroutine is its only caller.
type Session struct {
	registry    *identity.Registry
	pool        *catalog.Store
	rosters     *roster.Store
	sched       *Scheduler
	rounds      int
	catalogSize int
}

type Option func(*Session)

func WithRounds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.rounds = n
		}
	}
}

func WithShuffle(fn Shuffler) Option {
	return func(s *Session) { s.sched = NewScheduler(fn) }
}

func NewSession(items []catalog.Item, opts ...Option) *Session {
	s := &Session{
		registry:    identity.NewRegistry(),
		pool:        catalog.NewStore(items),
		rosters:     roster.NewStore(),
		sched:       NewScheduler(nil),
		rounds:      DefaultRounds,
		catalogSize: len(items),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply validates cmd against the current state and mutates only when every
// check passes. A rejected command returns an error and no events.
func (s *Session) Apply(cmd Command) ([]Event, error) {
	if cmd.Identity == "" {
		return nil, ErrInvalidRequest
	}

	switch cmd.Type {
	case CmdJoinDraft:
		return s.join(cmd)
	case CmdStartDraft:
		return s.start(cmd)
	case CmdMakePick:
		return s.pick(cmd)
	case CmdKickTeam:
		return s.kick(cmd)
	case CmdRejoinDraft:
		return s.rejoin(cmd)
	default:
		return nil, ErrUnsupportedCommand
	}
}

func (s *Session) join(cmd Command) ([]Event, error) {
	name := cmd.TeamName
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > maxTeamNameLen {
		return nil, ErrInvalidRequest
	}

	// Re-joining under the same name is a no-op acknowledgement.
	if team, ok := s.registry.TeamOf(cmd.Identity); ok && team == name {
		return []Event{{Type: EvtJoinedDraft, Target: ToCaller, Payload: s.joinedPayload(cmd.Identity, name)}}, nil
	}
	if s.sched.Started() {
		return nil, ErrDraftAlreadyStarted
	}
	if err := s.registry.Register(cmd.Identity, name); err != nil {
		return nil, err
	}
	s.rosters.Create(name)

	return []Event{
		{Type: EvtJoinedDraft, Target: ToCaller, Payload: s.joinedPayload(cmd.Identity, name)},
		{Type: EvtUpdateTeams, Target: ToAll, Payload: TeamsUpdate{Teams: s.registry.Teams()}},
		{Type: EvtStateUpdate, Target: ToAll},
	}, nil
}

func (s *Session) joinedPayload(identity, team string) JoinedDraft {
	return JoinedDraft{
		TeamName: team,
		UserID:   identity,
		IsHost:   s.registry.IsHost(identity),
		Teams:    s.registry.Teams(),
	}
}

func (s *Session) start(cmd Command) ([]Event, error) {
	if s.registry.Len() == 0 {
		return nil, ErrNoTeams
	}
	if !s.registry.IsHost(cmd.Identity) {
		return nil, ErrNotHost
	}
	if s.sched.Started() {
		return nil, ErrDraftAlreadyStarted
	}

	s.sched.Build(s.registry.Teams(), s.rounds)

	return []Event{
		{Type: EvtDraftStarted, Target: ToAll, Payload: DraftStarted{
			DraftOrder: s.sched.DraftOrder(),
			PickOrder:  s.sched.PickOrder(),
		}},
		{Type: EvtStateUpdate, Target: ToAll},
	}, nil
}

func (s *Session) pick(cmd Command) ([]Event, error) {
	team, ok := s.registry.TeamOf(cmd.Identity)
	if !ok {
		return nil, ErrNotRegistered
	}
	if !s.sched.Started() {
		return nil, ErrDraftNotActive
	}
	if s.sched.Complete() {
		return nil, ErrDraftComplete
	}
	// An athlete that is already gone is reported before the turn check,
	// so a stale click gets the more useful message.
	if !s.pool.Has(cmd.AthleteName) {
		return nil, ErrAthleteNotAvailable
	}
	if current, _ := s.sched.Current(); current != team {
		return nil, ErrNotYourTurn
	}

	item, err := s.pool.Take(cmd.AthleteName)
	if err != nil {
		return nil, err
	}
	s.rosters.Assign(team, item)
	s.sched.Advance()

	events := []Event{
		{Type: EvtStateUpdate, Target: ToAll},
		{Type: EvtPickMade, Target: ToCaller, Payload: PickMade{
			Success: true,
			Athlete: item,
			Roster:  s.rosters.Get(team),
		}},
	}
	if s.sched.Complete() {
		events = append(events, Event{Type: EvtDraftResults, Target: ToAll, Payload: s.Results()})
	}
	return events, nil
}

func (s *Session) kick(cmd Command) ([]Event, error) {
	if !s.registry.IsHost(cmd.Identity) {
		return nil, ErrNotHost
	}
	kickedID, err := s.registry.Remove(cmd.TeamName)
	if err != nil {
		return nil, err
	}
	s.rosters.RemoveTeam(cmd.TeamName)
	if s.sched.Started() {
		// Prune keeps a completed draft complete rather than clamping.
		s.sched.Prune(cmd.TeamName)
	}

	return []Event{
		{Type: EvtKicked, Target: ToIdentity, Identity: kickedID, Payload: Kicked{TeamName: cmd.TeamName}},
		{Type: EvtTeamKicked, Target: ToAll, Payload: TeamsUpdate{Teams: s.registry.Teams()}},
		{Type: EvtStateUpdate, Target: ToAll},
	}, nil
}

func (s *Session) rejoin(cmd Command) ([]Event, error) {
	team, ok := s.registry.TeamOf(cmd.Identity)
	if cmd.TeamName != "" && (!ok || team != cmd.TeamName) {
		return nil, ErrNotRegistered
	}

	return []Event{
		{Type: EvtRejoinedDraft, Target: ToCaller, Payload: RejoinedDraft{
			TeamName:     optional(team),
			UserID:       cmd.Identity,
			IsHost:       s.registry.IsHost(cmd.Identity),
			DraftStarted: s.sched.Started(),
		}},
		{Type: EvtStateUpdate, Target: ToCaller},
	}, nil
}

// Teams returns registered team names in join order.
func (s *Session) IsHost(identity string) bool { return s.registry.IsHost(identity) }

func (s *Session) Teams() []string { return s.registry.Teams() }

func (s *Session) Rosters() map[string][]catalog.Item { return s.rosters.All() }

// Results is the end-of-draft summary.
func (s *Session) Results() DraftResults {
	rosters := s.rosters.All()
	return DraftResults{
		TeamRosters:       rosters,
		ProjectedRankings: ProjectRankings(s.registry.Teams(), rosters, s.catalogSize),
	}
}

// PublicMessage is the text a rejected caller sees. Errors outside the known
// set collapse to a generic rejection.
func PublicMessage(err error) string {
	for _, known := range rejections {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInvalidRequest.Error()
}

var rejections = []error{
	ErrNameTaken,
	ErrAlreadyRegistered,
	ErrNotRegistered,
	ErrNotYourTurn,
	ErrAthleteNotAvailable,
	ErrDraftAlreadyStarted,
	ErrDraftNotActive,
	ErrDraftComplete,
	ErrNotHost,
	ErrTeamNotFound,
	ErrNoTeams,
	ErrInvalidRequest,
	ErrUnsupportedCommand,
}

// IsRejection reports whether err is one of the user-facing rejections.
func IsRejection(err error) bool {
	for _, known := range rejections {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
