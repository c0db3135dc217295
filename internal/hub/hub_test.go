package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/lobby"
)

func factory(ctx context.Context) *lobby.Lobby {
	return lobby.NewLobby(ctx, engine.NewSession([]catalog.Item{{Rank: 1, Name: "Ada"}}))
}

func TestHub_Current_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, factory, nil)
	defer h.Shutdown()

	lb1, err := h.Lobby(ctx)
	require.NoError(t, err)
	lb2, err := h.Lobby(ctx)
	require.NoError(t, err)

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
}

func TestHub_ResetGivesFreshSession(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, factory, nil)
	defer h.Shutdown()

	old, err := h.Lobby(ctx)
	require.NoError(t, err)
	require.NoError(t, old.Send(ctx, lobby.FromClient{Cmd: engine.Command{
		Type: engine.CmdJoinDraft, Identity: "u1", TeamName: "A",
	}}))
	view, err := old.View(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, view.Teams)

	fresh, err := h.ResetSession(ctx)
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)

	select {
	case <-old.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("old lobby still running after reset")
	}

	view, err = fresh.View(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Teams)
	assert.Nil(t, view.TeamName)
}

func TestHub_ShutdownStopsLobby(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, factory, nil)

	lb, err := h.Lobby(ctx)
	require.NoError(t, err)

	h.Shutdown()
	select {
	case <-lb.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("lobby not stopped by hub shutdown")
	}

	_, err = h.Lobby(ctx)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestHub_ResetAsHost(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, factory, nil)
	defer h.Shutdown()

	old, err := h.Lobby(ctx)
	require.NoError(t, err)
	for _, c := range []engine.Command{
		{Type: engine.CmdJoinDraft, Identity: "u1", TeamName: "A"},
		{Type: engine.CmdJoinDraft, Identity: "u2", TeamName: "B"},
	} {
		require.NoError(t, old.Send(ctx, lobby.FromClient{Cmd: c}))
	}

	cases := []string{"u2", "stranger", ""}
	for _, identity := range cases {
		_, err := h.ResetAsHost(ctx, identity)
		assert.ErrorIs(t, err, engine.ErrNotHost, "identity %q", identity)
	}

	current, err := h.Lobby(ctx)
	require.NoError(t, err)
	assert.Same(t, old, current)
	view, err := current.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, view.Teams)

	fresh, err := h.ResetAsHost(ctx, "u1")
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	select {
	case <-old.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("old lobby still running after host reset")
	}
}

func TestHub_ResetAsHostSeesEarlierKick(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, factory, nil)
	defer h.Shutdown()

	lb, err := h.Lobby(ctx)
	require.NoError(t, err)
	for _, c := range []engine.Command{
		{Type: engine.CmdJoinDraft, Identity: "u1", TeamName: "A"},
		{Type: engine.CmdJoinDraft, Identity: "u2", TeamName: "B"},
		{Type: engine.CmdKickTeam, Identity: "u1", TeamName: "A"},
	} {
		require.NoError(t, lb.Send(ctx, lobby.FromClient{Cmd: c}))
	}

	// The kick is queued ahead of the host check, so u1 is no longer host.
	_, err = h.ResetAsHost(ctx, "u1")
	assert.ErrorIs(t, err, engine.ErrNotHost)
}
