package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/lobby"
)

var ErrStopped = errors.New("hub stopped")

// Factory builds a lobby around a fresh draft session.
type Factory func(ctx context.Context) *lobby.Lobby

type HubMsg interface{ isHubMsg() }

type Current struct {
	Reply chan *lobby.Lobby
}

// Reset replaces the active lobby with a fresh session. Connections to the
// old lobby see their outboxes closed.
type Reset struct {
	Reply chan *lobby.Lobby
}

// HostReset is Reset guarded by a host check that the active lobby performs
// as its final command.
type HostReset struct {
	Identity string
	Reply    chan resetResult
}

type resetResult struct {
	lobby *lobby.Lobby
	err   error
}

type ShutdownHub struct{}

func (Current) isHubMsg()     {}
func (Reset) isHubMsg()       {}
func (HostReset) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the one active draft lobby.
type Hub struct {
	inbox   chan HubMsg
	active  *lobby.Lobby
	factory Factory
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		factory: factory,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	h.active = factory(ctx)
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.active.Close()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Current:
				msg.Reply <- h.active

			case Reset:
				h.active.Close()
				h.active = h.factory(h.ctx)
				h.log.Info("draft session reset")
				msg.Reply <- h.active

			case HostReset:
				closed, err := h.active.CloseAsHost(h.ctx, msg.Identity)
				switch {
				case err != nil:
					msg.Reply <- resetResult{err: err}
				case !closed:
					msg.Reply <- resetResult{err: engine.ErrNotHost}
				default:
					h.active = h.factory(h.ctx)
					h.log.Info("draft session reset by host", zap.String("identity", msg.Identity))
					msg.Reply <- resetResult{lobby: h.active}
				}

			case ShutdownHub:
				h.active.Close()
				h.cancel()
				return
			}
		}
	}
}

// Lobby returns the active lobby.
func (h *Hub) Lobby(ctx context.Context) (*lobby.Lobby, error) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg { return Current{Reply: reply} })
}

// ResetSession discards the current draft and starts a new one.
func (h *Hub) ResetSession(ctx context.Context) (*lobby.Lobby, error) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg { return Reset{Reply: reply} })
}

// ResetAsHost replaces the session only if identity is the current host.
// It returns engine.ErrNotHost otherwise.
func (h *Hub) ResetAsHost(ctx context.Context, identity string) (*lobby.Lobby, error) {
	reply := make(chan resetResult, 1)
	select {
	case h.inbox <- HostReset{Identity: identity, Reply: reply}:
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.lobby, res.err
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) ask(ctx context.Context, build func(chan *lobby.Lobby) HubMsg) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- build(reply):
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the hub and the active lobby.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
