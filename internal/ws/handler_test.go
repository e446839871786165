package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/tournament"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

func newHub(t *testing.T) *hub.Hub {
	t.Helper()
	st := store.NewMemory()
	h := hub.NewHub(context.Background(), func(ctx context.Context, id string) (*tournament.Tournament, error) {
		return tournament.New(ctx, id, st, tournament.Options{}, zap.NewNop())
	}, zap.NewNop())
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h
}

func TestHandler_MissingTournament(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(newHub(t), zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StreamsCurrentThenUpdates(t *testing.T) {
	h := newHub(t)
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"?tournament=t1", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	first, err := types.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, types.ActionReset, first.Type)

	tr, err := h.Get(ctx, "t1")
	require.NoError(t, err)
	res := tr.ResetDisplay(ctx)
	require.NoError(t, res.Err)

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	next, err := types.Decode(data)
	require.NoError(t, err)
	assert.Greater(t, next.Version, first.Version)
}
