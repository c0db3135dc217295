package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DoyleJ11/athlete-draft/internal/hub"
	"github.com/DoyleJ11/athlete-draft/internal/metrics"
	"github.com/DoyleJ11/athlete-draft/internal/ws"
)

type nopResets struct{}

func (nopResets) RecordSessionReset() {}

type Deps struct {
	Logger       *zap.Logger
	Gatherer     prometheus.Gatherer
	Metrics      *metrics.Collector
	WS           ws.Options
	CookieSecure bool
}

func SetupRoutes(h *hub.Hub, d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var resets ResetRecorder = nopResets{}
	if d.Metrics != nil {
		resets = d.Metrics
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	// Public routes
	r.Get("/", Index(h, d.CookieSecure))
	r.Get("/get_state", GetState(h))
	r.Get("/download_rosters", DownloadRosters(h, log))
	r.Post("/reset", Reset(h, resets))
	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	r.Get("/ws", ws.Handler(h, d.WS))
	return r
}
