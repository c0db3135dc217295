package lobby

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/types"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Identity string
	Outbox   chan types.ServerMessage // where this connection receives frames
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// GetView asks for the StateView of one identity, used by HTTP polling.
type GetView struct {
	Identity string
	Reply    chan engine.StateView
}

func (GetView) isLobbyMsg() {}

// CloseIfHost shuts the lobby down only if Identity is the host. The check
// and the close happen in one loop turn, so no command lands in between.
type CloseIfHost struct {
	Identity string
	Reply    chan bool
}

func (CloseIfHost) isLobbyMsg() {}

type GetRosters struct {
	Reply chan RosterExport
}

func (GetRosters) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type RosterExport struct {
	Teams   []string
	Rosters map[string][]catalog.Item
}

type View struct {
	Version    int
	NumClients int
	Status     engine.Status
}

// Recorder receives lobby activity for metrics.
type Recorder interface {
	RecordCommand(cmd string, outcome string)
	SetConnectedClients(n int)
	RecordDroppedClient()
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, string) {}
func (nopRecorder) SetConnectedClients(int)      {}
func (nopRecorder) RecordDroppedClient()         {}

type Option func(*Lobby)

func WithLogger(log *zap.Logger) Option {
	return func(l *Lobby) { l.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(l *Lobby) { l.metrics = r }
}

type client struct {
	identity string
	outbox   chan types.ServerMessage
}

// Lobby serialises every command for one draft session through a single
// goroutine, so the turn check and the pick it guards never interleave with
// another mutation.
type Lobby struct {
	inbox   chan Msg
	session *engine.Session
	version int
	clients map[string]client
	log     *zap.Logger
	metrics Recorder
	ctx     context.Context
	cancel  context.CancelFunc

	// mu guards closed. Send holds the read lock while it enqueues, so once
	// shutdown has set closed every accepted message is already in inbox.
	mu     sync.RWMutex
	closed bool
}

func NewLobby(parent context.Context, session *engine.Session, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		session: session,
		clients: make(map[string]client),
		log:     zap.NewNop(),
		metrics: nopRecorder{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = client{identity: msg.Identity, outbox: msg.Outbox}
				l.metrics.SetConnectedClients(len(l.clients))
				l.deliver(msg.ClientID, l.stateUpdate(msg.Identity))

			case Leave:
				if _, ok := l.clients[msg.ClientID]; ok {
					delete(l.clients, msg.ClientID)
					l.metrics.SetConnectedClients(len(l.clients))
				}

			case FromClient:
				l.handle(msg)

			case GetView:
				msg.Reply <- l.session.Snapshot(msg.Identity)

			case GetRosters:
				msg.Reply <- RosterExport{Teams: l.session.Teams(), Rosters: l.session.Rosters()}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Status:     l.session.Status(),
				}

			case CloseIfHost:
				isHost := l.session.IsHost(msg.Identity)
				msg.Reply <- isHost
				if isHost {
					l.log.Info("lobby closed by host", zap.String("identity", msg.Identity))
					l.shutdown()
					return
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handle(msg FromClient) {
	cmd := msg.Cmd
	events, err := l.session.Apply(cmd)
	if err != nil {
		if !engine.IsRejection(err) {
			l.log.Warn("unexpected command failure", zap.String("type", string(cmd.Type)), zap.Error(err))
		}
		l.log.Debug("command rejected",
			zap.String("type", string(cmd.Type)),
			zap.String("identity", cmd.Identity),
			zap.Error(err),
		)
		l.metrics.RecordCommand(string(cmd.Type), "rejected")
		l.deliver(msg.ClientID, types.Error(engine.PublicMessage(err)))
		return
	}

	l.metrics.RecordCommand(string(cmd.Type), "applied")
	for _, ev := range events {
		if ev.Target == engine.ToAll {
			l.version++
			break
		}
	}
	l.dispatch(msg.ClientID, cmd.Identity, events)

	switch cmd.Type {
	case engine.CmdStartDraft, engine.CmdKickTeam:
		l.log.Info("draft changed",
			zap.String("type", string(cmd.Type)),
			zap.String("team", cmd.TeamName),
			zap.Strings("teams", l.session.Teams()),
		)
	}
	if l.session.Status() == engine.StatusComplete && cmd.Type == engine.CmdMakePick {
		l.log.Info("draft complete", zap.Int("version", l.version))
	}
}

func (l *Lobby) dispatch(callerID, callerIdentity string, events []engine.Event) {
	views := map[string]types.ServerMessage{}
	stateFor := func(identity string) types.ServerMessage {
		if m, ok := views[identity]; ok {
			return m
		}
		m := l.stateUpdate(identity)
		views[identity] = m
		return m
	}

	for _, ev := range events {
		out := types.ServerMessage{Type: string(ev.Type), Version: l.version, Data: ev.Payload}

		switch ev.Target {
		case engine.ToAll:
			for id, c := range l.clients {
				if ev.Type == engine.EvtStateUpdate {
					out = stateFor(c.identity)
				}
				l.deliver(id, out)
			}
		case engine.ToCaller:
			if ev.Type == engine.EvtStateUpdate {
				out = stateFor(callerIdentity)
			}
			l.deliver(callerID, out)
		case engine.ToIdentity:
			for id, c := range l.clients {
				if c.identity == ev.Identity {
					l.deliver(id, out)
				}
			}
		}
	}
}

func (l *Lobby) stateUpdate(identity string) types.ServerMessage {
	return types.ServerMessage{
		Type:    string(engine.EvtStateUpdate),
		Version: l.version,
		Data:    l.session.Snapshot(identity),
	}
}

// deliver never blocks. A connection whose outbox is full is dropped.
func (l *Lobby) deliver(clientID string, m types.ServerMessage) {
	c, ok := l.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.outbox <- m:
	default:
		close(c.outbox)
		delete(l.clients, clientID)
		l.metrics.RecordDroppedClient()
		l.metrics.SetConnectedClients(len(l.clients))
		l.log.Info("dropped slow client", zap.String("client", clientID))
	}
}

func (l *Lobby) shutdown() {
	l.cancel()
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	for id, c := range l.clients {
		close(c.outbox) // no more frames for this connection
		delete(l.clients, id)
	}
	l.metrics.SetConnectedClients(0)

	// Anything queued behind the shutdown is never applied. Pending joins
	// still own an outbox, close it so the connection notices.
	for {
		select {
		case m := <-l.inbox:
			if j, ok := m.(Join); ok {
				close(j.Outbox)
			}
		default:
			return
		}
	}
}

// Expose the inbox so tests or the ws layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send queues msg unless the lobby or ctx is done first.
func (l *Lobby) Send(ctx context.Context, msg Msg) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || l.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case l.inbox <- msg:
		return nil
	case <-l.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the lobby stops.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Close stops the lobby and closes every client outbox.
func (l *Lobby) Close() { l.cancel() }

// View returns the StateView for identity.
func (l *Lobby) View(ctx context.Context, identity string) (engine.StateView, error) {
	reply := make(chan engine.StateView, 1)
	if err := l.Send(ctx, GetView{Identity: identity, Reply: reply}); err != nil {
		return engine.StateView{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return engine.StateView{}, ErrClosed
	case <-ctx.Done():
		return engine.StateView{}, ctx.Err()
	}
}

// CloseAsHost closes the lobby if identity is its host and reports whether
// it did.
func (l *Lobby) CloseAsHost(ctx context.Context, identity string) (bool, error) {
	reply := make(chan bool, 1)
	if err := l.Send(ctx, CloseIfHost{Identity: identity, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-l.ctx.Done():
		// the reply is sent before the lobby cancels itself
		select {
		case ok := <-reply:
			return ok, nil
		default:
			return false, ErrClosed
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (l *Lobby) Rosters(ctx context.Context) (RosterExport, error) {
	reply := make(chan RosterExport, 1)
	if err := l.Send(ctx, GetRosters{Reply: reply}); err != nil {
		return RosterExport{}, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-l.ctx.Done():
		return RosterExport{}, ErrClosed
	case <-ctx.Done():
		return RosterExport{}, ctx.Err()
	}
}
