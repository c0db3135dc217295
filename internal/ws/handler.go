package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/hub"
	"github.com/DoyleJ11/athlete-draft/internal/lobby"
	"github.com/DoyleJ11/athlete-draft/internal/types"
)

// CookieName carries the opaque identity token issued by GET /.
const CookieName = "draft_uid"

// IdentityFrom returns the caller's identity token from the cookie or the
// uid query parameter. Anything that is not a UUID is ignored.
func IdentityFrom(r *http.Request) string {
	raw := r.URL.Query().Get("uid")
	if c, err := r.Cookie(CookieName); err == nil {
		raw = c.Value
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

// ConnRecorder receives per-connection counters.
type ConnRecorder interface {
	RecordThrottled()
	RecordBadFrame()
}

type nopRecorder struct{}

func (nopRecorder) RecordThrottled() {}
func (nopRecorder) RecordBadFrame()  {}

type Options struct {
	ClientBuffer   int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MessageRate    rate.Limit
	MessageBurst   int
	OriginPatterns []string
	Logger         *zap.Logger
	Metrics        ConnRecorder
}

func (o Options) withDefaults() Options {
	if o.ClientBuffer <= 0 {
		o.ClientBuffer = 16
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MessageRate <= 0 {
		o.MessageRate = 10
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = 20
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	return o
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Lobby(r.Context())
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}

		identity := IdentityFrom(r)
		issued := identity == ""
		if issued {
			identity = uuid.NewString()
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		clientID := uuid.NewString()
		log := opts.Logger.With(zap.String("client", clientID), zap.String("identity", identity))

		// out belongs to the lobby once joined; local carries frames that
		// this connection generates itself.
		out := make(chan types.ServerMessage, opts.ClientBuffer)
		local := make(chan types.ServerMessage, 4)
		reply := func(m types.ServerMessage) {
			select {
			case local <- m:
			default:
			}
		}

		if issued {
			m := types.ServerMessage{Type: types.TypeIdentity, Data: types.IdentityData{UserID: identity}}
			if err := write(ctx, conn, m, opts.WriteTimeout); err != nil {
				return
			}
		}

		// A reset can close lb between lookup and join; follow it to the new lobby.
		for attempt := 0; ; attempt++ {
			err = lb.Send(ctx, lobby.Join{ClientID: clientID, Identity: identity, Outbox: out})
			if err == nil {
				break
			}
			if !errors.Is(err, lobby.ErrClosed) || attempt == 2 {
				conn.Close(websocket.StatusTryAgainLater, "draft unavailable")
				return
			}
			if lb, err = h.Lobby(ctx); err != nil {
				conn.Close(websocket.StatusTryAgainLater, "draft unavailable")
				return
			}
		}
		defer func() {
			leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
			defer leaveCancel()
			_ = lb.Send(leaveCtx, lobby.Leave{ClientID: clientID})
		}()
		log.Debug("client connected")

		// Writer goroutine
		go func() {
			defer cancel()
			ticker := time.NewTicker(opts.PingInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case m, ok := <-out:
					if !ok {
						// lobby dropped us or shut down
						conn.Close(websocket.StatusGoingAway, "draft connection closed")
						return
					}
					if err := write(ctx, conn, m, opts.WriteTimeout); err != nil {
						return
					}
				case m := <-local:
					if err := write(ctx, conn, m, opts.WriteTimeout); err != nil {
						return
					}
				case <-ticker.C:
					pingCtx, pingCancel := context.WithTimeout(ctx, opts.WriteTimeout)
					err := conn.Ping(pingCtx)
					pingCancel()
					if err != nil {
						log.Debug("ping failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		limiter := rate.NewLimiter(opts.MessageRate, opts.MessageBurst)
		invalid := types.Error(engine.ErrInvalidRequest.Error())
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client disconnected")
				default:
					if ctx.Err() == nil {
						log.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			if !limiter.Allow() {
				opts.Metrics.RecordThrottled()
				reply(types.Error("too many messages, slow down"))
				continue
			}

			var cm types.ClientMessage
			if typ != websocket.MessageText || json.Unmarshal(data, &cm) != nil {
				opts.Metrics.RecordBadFrame()
				reply(invalid)
				continue
			}

			cmd, ok := types.ToCommand(identity, cm)
			if !ok {
				opts.Metrics.RecordBadFrame()
				reply(invalid)
				continue
			}

			if err := lb.Send(ctx, lobby.FromClient{ClientID: clientID, Cmd: cmd}); err != nil {
				conn.Close(websocket.StatusGoingAway, "draft closed")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, m types.ServerMessage, timeout time.Duration) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
