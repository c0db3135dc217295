package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/hub"
	"github.com/DoyleJ11/athlete-draft/internal/lobby"
	"github.com/DoyleJ11/athlete-draft/internal/metrics"
	"github.com/DoyleJ11/athlete-draft/internal/ws"
)

type fixture struct {
	hub    *hub.Hub
	router http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	items := []catalog.Item{
		{Rank: 1, Name: "Ada", Team: "LAL", Trend: "up"},
		{Rank: 2, Name: "Bo", Team: "BOS"},
	}
	h := hub.NewHub(context.Background(), func(ctx context.Context) *lobby.Lobby {
		s := engine.NewSession(items, engine.WithRounds(1), engine.WithShuffle(func([]string) {}))
		return lobby.NewLobby(ctx, s)
	}, nil)
	t.Cleanup(h.Shutdown)

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	return fixture{
		hub:    h,
		router: SetupRoutes(h, Deps{Gatherer: reg, Metrics: m}),
	}
}

// apply runs cmd against the active lobby and waits for it to be processed.
func (f fixture) apply(t *testing.T, cmd engine.Command) {
	t.Helper()
	ctx := context.Background()
	lb, err := f.hub.Lobby(ctx)
	require.NoError(t, err)
	require.NoError(t, lb.Send(ctx, lobby.FromClient{ClientID: "test", Cmd: cmd}))
	_, err = lb.View(ctx, cmd.Identity)
	require.NoError(t, err)
}

func (f fixture) do(method, target, identity string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	if identity != "" {
		r.AddCookie(&http.Cookie{Name: ws.CookieName, Value: identity})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func TestIndex_IssuesCookie(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ws.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	_, err := uuid.Parse(cookies[0].Value)
	require.NoError(t, err)

	var body struct {
		UserID   string  `json:"user_id"`
		TeamName *string `json:"team_name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, cookies[0].Value, body.UserID)
	assert.Nil(t, body.TeamName)
}

func TestIndex_KnownIdentity(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: id, TeamName: "A"})

	w := f.do(http.MethodGet, "/", id)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.JSONEq(t, `{"user_id":"`+id+`","team_name":"A"}`, w.Body.String())
}

func TestGetState(t *testing.T) {
	f := newFixture(t)

	t.Run("no identity", func(t *testing.T) {
		w := f.do(http.MethodGet, "/get_state", "")
		assert.JSONEq(t, `{"error":"User not found"}`, w.Body.String())
	})

	t.Run("registered", func(t *testing.T) {
		id := uuid.NewString()
		f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: id, TeamName: "A"})

		w := f.do(http.MethodGet, "/get_state", id)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var view engine.StateView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		require.NotNil(t, view.TeamName)
		assert.Equal(t, "A", *view.TeamName)
		assert.True(t, view.IsHost)
		assert.Equal(t, engine.StatusLobby, view.Status)
		assert.Len(t, view.AvailableAthletes, 2)
	})
}

func TestDownloadRosters(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.NewString(), uuid.NewString()
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: a, TeamName: "A"})
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: b, TeamName: "B"})
	f.apply(t, engine.Command{Type: engine.CmdStartDraft, Identity: a})
	f.apply(t, engine.Command{Type: engine.CmdMakePick, Identity: a, AthleteName: "Ada"})

	w := f.do(http.MethodGet, "/download_rosters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "team_rosters.csv")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A", "1", "Ada", "LAL", "up"}, rows[1])
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	host, guest := uuid.NewString(), uuid.NewString()
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: host, TeamName: "A"})
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: guest, TeamName: "B"})

	before, err := f.hub.Lobby(context.Background())
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/reset", guest)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/reset", host)
	require.Equal(t, http.StatusNoContent, w.Code)

	after, err := f.hub.Lobby(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	m := f.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, m.Body.String(), "draft_session_resets_total 1")

	w = f.do(http.MethodGet, "/get_state", host)
	var view engine.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Nil(t, view.TeamName)
	assert.Empty(t, view.Teams)
}

func TestReset_FormerHostAfterSelfKick(t *testing.T) {
	f := newFixture(t)
	host, guest := uuid.NewString(), uuid.NewString()
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: host, TeamName: "A"})
	f.apply(t, engine.Command{Type: engine.CmdJoinDraft, Identity: guest, TeamName: "B"})
	f.apply(t, engine.Command{Type: engine.CmdKickTeam, Identity: host, TeamName: "A"})

	before, err := f.hub.Lobby(context.Background())
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/reset", host)
	assert.Equal(t, http.StatusForbidden, w.Code)

	after, err := f.hub.Lobby(context.Background())
	require.NoError(t, err)
	assert.Same(t, before, after, "refused reset keeps the draft")

	w = f.do(http.MethodGet, "/get_state", guest)
	var view engine.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.IsHost)
	assert.Equal(t, []string{"B"}, view.Teams)

	w = f.do(http.MethodPost, "/reset", guest)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "draft_session_resets_total")
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
