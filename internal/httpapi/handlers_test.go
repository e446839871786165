package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/tournament"
	"github.com/DoyleJ11/spelling-bee-backend/internal/words"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type env struct {
	srv *httptest.Server
}

func setup(t *testing.T) env {
	t.Helper()
	st := store.NewMemory()
	h := hub.NewHub(context.Background(), func(ctx context.Context, id string) (*tournament.Tournament, error) {
		return tournament.New(ctx, id, st, tournament.Options{
			ShuffleDuration: 10 * time.Millisecond,
			ShuffleInterval: 5 * time.Millisecond,
		}, zap.NewNop())
	}, zap.NewNop())
	srv := httptest.NewServer(SetupRoutes(Deps{Hub: h, Store: st, Log: zap.NewNop(), PublicURL: "https://bee.example"}))
	t.Cleanup(func() {
		srv.Close()
		_ = h.Shutdown(context.Background())
	})
	return env{srv: srv}
}

func (e env) do(t *testing.T, method, path, contentType string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e env) command(t *testing.T, id string, msg types.CommandMessage) (*http.Response, types.CommandResult) {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	resp := e.do(t, http.MethodPost, "/tournaments/"+id+"/commands", "application/json", string(b))
	var res types.CommandResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp, res
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestHealthz(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "", "").StatusCode)
}

func TestCreateTournament(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodPost, "/tournaments", "", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		ID string `json:"id"`
	}](t, resp)
	require.Len(t, created.ID, 6)

	resp = e.do(t, http.MethodGet, "/tournaments/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[tournament.View](t, resp)
	assert.Equal(t, engine.PhaseIdle, v.Phase)
}

func TestRoundThroughHTTP(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodPost, "/wordlists?id=animals", "text/csv", "word\ncat\ndog\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	list := decode[words.List](t, resp)
	assert.Equal(t, []string{"cat", "dog"}, list.Words)

	resp = e.do(t, http.MethodPut, "/tournaments/spring/participants", "application/json",
		`[{"id":"a","name":"Ann"},{"id":"b","name":"Bo"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = e.do(t, http.MethodGet, "/tournaments/spring", "", "")
	require.Len(t, decode[tournament.View](t, resp).Participants, 2)

	resp, _ = e.command(t, "spring", types.CommandMessage{Type: "SelectWordList", ListID: "animals"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.command(t, "spring", types.CommandMessage{Type: "StartRound"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp := e.do(t, http.MethodGet, "/tournaments/spring", "", "")
		return decode[tournament.View](t, resp).Phase == engine.PhasePaired
	}, time.Second, 10*time.Millisecond)

	resp, _ = e.command(t, "spring", types.CommandMessage{Type: "DrawWord"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, res := e.command(t, "spring", types.CommandMessage{Type: "DeclareWinner", ParticipantID: "zed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, res.Error)

	resp, _ = e.command(t, "spring", types.CommandMessage{Type: "DeclareWinner", ParticipantID: "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/tournaments/spring/winners", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	winners := decode[struct {
		Entries []ledger.WinnerEntry `json:"entries"`
		Totals  []ledger.WinnerTotal `json:"totals"`
	}](t, resp)
	require.Len(t, winners.Totals, 1)
	assert.Equal(t, "Ann", winners.Totals[0].Name)
	assert.Equal(t, []string{"cat"}, winners.Totals[0].Words)
}

func TestCommandErrors(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name string
		msg  types.CommandMessage
		want int
	}{
		{"out of order", types.CommandMessage{Type: "DrawWord"}, http.StatusConflict},
		{"unknown", types.CommandMessage{Type: "Dance"}, http.StatusBadRequest},
		{"missing participant id", types.CommandMessage{Type: "DeclareWinner"}, http.StatusBadRequest},
		{"bad mode", types.CommandMessage{Type: "SetMode", Mode: "shuffle"}, http.StatusUnprocessableEntity},
		{"bad count", types.CommandMessage{Type: "SetWordsPerRound", Count: 0}, http.StatusUnprocessableEntity},
		{"unknown list", types.CommandMessage{Type: "SelectWordList", ListID: "nope"}, http.StatusNotFound},
		{"reset display", types.CommandMessage{Type: "ResetDisplay"}, http.StatusOK},
		{"clear", types.CommandMessage{Type: "Clear"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := e.command(t, "t1", tt.msg)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp := e.do(t, http.MethodPost, "/tournaments/t1/commands", "application/json", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutParticipants_Validation(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodPut, "/tournaments/t1/participants", "application/json", `[{"id":"a","name":""}]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodPut, "/tournaments/t1/participants", "application/json", `[{"id":"a","name":"A"},{"id":"a","name":"B"}]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/tournaments/t1/participants", "application/json", `[{"name":"Ann"},{"name":"Bo"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roster := decode[ledger.Roster](t, resp)
	assert.Equal(t, "p1", roster[0].ID)
}

func TestPutParticipants_RefusedMidRound(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodPut, "/tournaments/t1/participants", "application/json",
		`[{"id":"a","name":"Ann"},{"id":"b","name":"Bo"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.command(t, "t1", types.CommandMessage{Type: "StartRound"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/tournaments/t1/participants", "application/json", `[{"id":"c","name":"Cy"}]`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/tournaments/t1", "", "")
	v := decode[tournament.View](t, resp)
	require.Len(t, v.Participants, 2)
	assert.Equal(t, "Ann", v.Participants[0].Name)
}

func TestTemplates(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodPut, "/tournaments/t1/templates", "application/json",
		`{"HIDE_WORD":{"enabled":false,"text":""}}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/tournaments/t1/templates", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set map[string]struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&set))
	assert.False(t, set["HIDE_WORD"].Enabled)
	assert.True(t, set["SHOW_WORD"].Enabled)

	resp = e.do(t, http.MethodPut, "/tournaments/t1/templates", "application/json", `{"CONFETTI":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWordLists(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodPost, "/wordlists", "application/json", `{"id":"w1","name":"W","words":[" cat ","cat","dog"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/wordlists/w1", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[words.List](t, resp)
	assert.Equal(t, []string{"cat", "dog"}, list.Words)

	resp = e.do(t, http.MethodPost, "/wordlists?id=w2&uppercase=true", "text/plain", "cat\ndog\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{"CAT", "DOG"}, decode[words.List](t, resp).Words)

	resp = e.do(t, http.MethodPost, "/wordlists", "text/csv", "word\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/wordlists/missing", "", "").StatusCode)
}

func TestDisplayQR(t *testing.T) {
	e := setup(t)
	resp := e.do(t, http.MethodGet, "/tournaments/t1/display/qr.png", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestDisplayURL(t *testing.T) {
	assert.Equal(t, "wss://bee.example/ws?tournament=t1", displayURL("https://bee.example/", "t1"))
	assert.Equal(t, "ws://localhost:8080/ws?tournament=t1", displayURL("http://localhost:8080", "t1"))
}
