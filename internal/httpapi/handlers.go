package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/hub"
	"github.com/DoyleJ11/athlete-draft/internal/ws"
)

const cookieMaxAge = 30 * 24 * time.Hour

// ResetRecorder counts session resets.
type ResetRecorder interface {
	RecordSessionReset()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Index issues the identity cookie on first contact and reports who the
// caller is.
func Index(h *hub.Hub, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := ws.IdentityFrom(r)
		if identity == "" {
			identity = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ws.CookieName,
				Value:    identity,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		lb, err := h.Lobby(r.Context())
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}
		view, err := lb.View(r.Context(), identity)
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			UserID   string  `json:"user_id"`
			TeamName *string `json:"team_name"`
		}{UserID: identity, TeamName: view.TeamName})
	}
}

// GetState returns the caller's StateView for refresh and polling.
func GetState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := ws.IdentityFrom(r)
		if identity == "" {
			writeJSON(w, http.StatusOK, map[string]string{"error": "User not found"})
			return
		}

		lb, err := h.Lobby(r.Context())
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}
		view, err := lb.View(r.Context(), identity)
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// DownloadRosters exports every roster as CSV.
func DownloadRosters(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Lobby(r.Context())
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}
		export, err := lb.Rosters(r.Context())
		if err != nil {
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="team_rosters.csv"`)
		if err := catalog.WriteRostersCSV(w, export.Teams, export.Rosters); err != nil {
			log.Warn("roster export failed", zap.Error(err))
		}
	}
}

// Reset lets the host throw away the current draft and open a new lobby.
// The host check runs inside the lobby so it cannot race a kick.
func Reset(h *hub.Hub, rec ResetRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := ws.IdentityFrom(r)
		if identity == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": engine.ErrNotHost.Error()})
			return
		}

		_, err := h.ResetAsHost(r.Context(), identity)
		switch {
		case errors.Is(err, engine.ErrNotHost):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": engine.ErrNotHost.Error()})
			return
		case err != nil:
			http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
			return
		}
		rec.RecordSessionReset()
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// RequestLogger logs one line per request at a level that follows the status.
func RequestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			switch {
			case status >= 500:
				log.Error("http_request", fields...)
			case status >= 400:
				log.Warn("http_request", fields...)
			default:
				log.Info("http_request", fields...)
			}
		})
	}
}
