package display

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/channel"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/templates"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type cueLog struct {
	events []string
}

func (c *cueLog) Play(cue Cue) { c.events = append(c.events, "play:"+string(cue)) }
func (c *cueLog) Stop(cue Cue) { c.events = append(c.events, "stop:"+string(cue)) }

type frames struct {
	shown []Frame
}

func (f *frames) Show(fr Frame) { f.shown = append(f.shown, fr) }

func (f *frames) last(t *testing.T) Frame {
	t.Helper()
	require.NotEmpty(t, f.shown)
	return f.shown[len(f.shown)-1]
}

type fixedRand int

func (r fixedRand) Intn(n int) int { return int(r) % n }

func action(t *testing.T, at types.ActionType, payload any) types.Action {
	t.Helper()
	a, err := types.NewAction(at, payload)
	require.NoError(t, err)
	return a
}

func newRenderer(tpl templates.Set) (*Renderer, *cueLog, *frames) {
	cues, screen := &cueLog{}, &frames{}
	r := NewRenderer(Options{Templates: tpl, Cues: cues, Screen: screen, Rand: fixedRand(1)}, zap.NewNop())
	return r, cues, screen
}

var (
	ann = Participant{ID: "a", Name: "Ann", Stars: 2}
	bo  = Participant{ID: "b", Name: "Bo", Stars: 1}
	cy  = Participant{ID: "c", Name: "Cy"}
)

func TestReduce(t *testing.T) {
	v := Neutral()
	v = Reduce(v, action(t, types.ActionShufflingParticipants, types.ShufflingPayload{
		ActiveParticipants: []Participant{ann, bo, cy}, CandidateA: ann, CandidateB: bo,
	}))
	assert.Len(t, v.Active, 3)

	v = Reduce(v, action(t, types.ActionUpdateParticipants, types.UpdateParticipantsPayload{
		ParticipantA: ann, ParticipantB: bo, DuelScore: types.DuelScore{A: 2, B: 1},
	}))
	require.NotNil(t, v.A)
	assert.Equal(t, "Ann", v.A.Name)
	assert.Equal(t, types.DuelScore{A: 2, B: 1}, v.Score)

	v = Reduce(v, action(t, types.ActionHideWord, nil))
	assert.True(t, v.Hidden)

	v = Reduce(v, action(t, types.ActionShowWord, types.ShowWordPayload{Words: []string{"CAT"}}))
	assert.False(t, v.Hidden)
	assert.Equal(t, []string{"CAT"}, v.Words)
	assert.Equal(t, "Bo", v.B.Name, "duel survives the reveal")

	v = Reduce(v, action(t, types.ActionRoundWinner, types.RoundWinnerPayload{Winner: &ann, Loser: &bo, Words: []string{"CAT"}}))
	assert.Equal(t, "Ann", v.Winner.Name)

	v = Reduce(v, types.Reset())
	assert.Equal(t, Neutral(), v)
}

func TestReduce_UnknownAndMalformedAreNoOps(t *testing.T) {
	v := Reduce(Neutral(), action(t, types.ActionShowWord, types.ShowWordPayload{Words: []string{"CAT"}}))

	assert.Equal(t, v, Reduce(v, types.Action{Type: "CONFETTI", Version: 9}))
	assert.Equal(t, v, Reduce(v, types.Action{Type: types.ActionShowWord, Payload: json.RawMessage(`{"words":5}`)}))
}

func TestRenderer_OneCuePerTransition(t *testing.T) {
	r, cues, _ := newRenderer(nil)
	r.Attach()

	shuffle := action(t, types.ActionShufflingParticipants, types.ShufflingPayload{ActiveParticipants: []Participant{ann, bo}})
	r.Apply(shuffle)
	r.Apply(shuffle)
	r.Apply(shuffle)
	r.Apply(action(t, types.ActionUpdateParticipants, types.UpdateParticipantsPayload{ParticipantA: ann, ParticipantB: bo}))

	assert.Equal(t, []string{"play:drumroll", "stop:drumroll", "play:versus"}, cues.events)
}

func TestRenderer_DisabledTypeUpdatesBookkeepingOnly(t *testing.T) {
	tpl := templates.Defaults().Merge(templates.Set{types.ActionShowWord: {Enabled: false}})
	r, cues, screen := newRenderer(tpl)
	r.Attach()
	drawn := len(screen.shown)

	show := action(t, types.ActionShowWord, types.ShowWordPayload{Words: []string{"CAT"}})
	r.Apply(show)
	assert.Empty(t, cues.events)
	assert.Len(t, screen.shown, drawn)
	assert.Equal(t, []string{"CAT"}, r.View().Words)

	// the same type again is not a transition, so nothing replays later
	r.Apply(show)
	r.Apply(action(t, types.ActionNoWinner, nil))
	assert.Equal(t, []string{"play:sad_trombone"}, cues.events)
}

func TestRenderer_AttachResetsTransitionTracking(t *testing.T) {
	r, cues, screen := newRenderer(nil)
	r.Apply(action(t, types.ActionNoWinner, nil))
	r.Attach()
	assert.Equal(t, types.ActionReset, r.View().Type)
	assert.Equal(t, types.ActionReset, screen.last(t).Type)

	r.Apply(action(t, types.ActionNoWinner, nil))
	assert.Equal(t, []string{"play:sad_trombone", "stop:sad_trombone", "play:sad_trombone"}, cues.events)
}

func TestRenderer_ShuffleHighlightIsLocal(t *testing.T) {
	r, _, screen := newRenderer(nil)
	r.Apply(action(t, types.ActionShufflingParticipants, types.ShufflingPayload{
		ActiveParticipants: []Participant{ann, bo, cy}, CandidateA: ann, CandidateB: cy,
	}))
	assert.Equal(t, "Bo", screen.last(t).Highlight, "highlight comes from the local rand, not the candidates")

	n := len(screen.shown)
	r.Tick()
	assert.Len(t, screen.shown, n+1)

	r.Apply(action(t, types.ActionUpdateParticipants, types.UpdateParticipantsPayload{ParticipantA: ann, ParticipantB: bo}))
	n = len(screen.shown)
	r.Tick()
	assert.Len(t, screen.shown, n, "no highlight frames after shuffling")
	assert.Empty(t, screen.last(t).Highlight)
}

func TestRenderer_RendersTemplates(t *testing.T) {
	r, _, screen := newRenderer(nil)
	r.Apply(action(t, types.ActionRoundWinner, types.RoundWinnerPayload{Winner: &ann, Loser: &bo, Words: []string{"CAT"}}))
	assert.Equal(t, "Ann spelled CAT!\n2 stars", screen.last(t).Text)

	r.Apply(action(t, types.ActionRoundWinner, types.RoundWinnerPayload{Words: []string{"DOG"}}))
	assert.Contains(t, screen.last(t).Text, "No one")

	r.Apply(action(t, types.ActionTieAnnouncement, types.TieAnnouncementPayload{TieWinners: []Participant{ann, bo}}))
	assert.Contains(t, screen.last(t).Text, "Ann, Bo")
}

func TestRenderer_IgnoresUnknownType(t *testing.T) {
	r, cues, screen := newRenderer(nil)
	r.Apply(types.Action{Type: "CONFETTI"})
	assert.Empty(t, cues.events)
	assert.Empty(t, screen.shown)
}

func TestRenderer_MalformedPayloadIsNoOp(t *testing.T) {
	r, cues, screen := newRenderer(nil)
	r.Apply(action(t, types.ActionShowWord, types.ShowWordPayload{Words: []string{"CAT"}}))
	require.Equal(t, []string{"play:reveal"}, cues.events)
	drawn := len(screen.shown)

	r.Apply(types.Action{Type: types.ActionFinalWinner, Payload: []byte(`{"finalWinner":5}`)})
	assert.Equal(t, []string{"play:reveal"}, cues.events)
	assert.Len(t, screen.shown, drawn)
	assert.Equal(t, types.ActionShowWord, r.View().Type)

	r.Apply(action(t, types.ActionFinalWinner, types.FinalWinnerPayload{FinalWinner: ann}))
	assert.Equal(t, []string{"play:reveal", "stop:reveal", "play:fanfare"}, cues.events)
	assert.Equal(t, types.ActionFinalWinner, screen.last(t).Type)
}

func TestTerminal_Show(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, 40).Show(Frame{Text: "CAT", Style: templates.Style{Bold: true}, Highlight: "Ann"})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, clearScreen))
	assert.Contains(t, out, "CAT")
	assert.Contains(t, out, "Ann")
}

func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "source closed unexpectedly")
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{}
	}
}

func TestSlot_AttachThenActions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := store.NewMemory()
	ch := channel.New(st, "t1", zap.NewNop())
	require.NoError(t, ch.Publish(ctx, action(t, types.ActionNoWinner, nil)))

	updates := Slot{Channel: ch, Log: zap.NewNop()}.Stream(ctx)
	assert.True(t, recvUpdate(t, updates, time.Second).Attach)
	assert.Equal(t, types.ActionNoWinner, recvUpdate(t, updates, time.Second).Action.Type)

	require.NoError(t, ch.Publish(ctx, types.Reset()))
	assert.Equal(t, types.ActionReset, recvUpdate(t, updates, time.Second).Action.Type)
}

// downStore fails Subscribe until fails reaches zero.
type downStore struct {
	*store.Memory
	fails atomic.Int32
}

func (s *downStore) Subscribe(path string, fn func(store.Change)) (func(), error) {
	if s.fails.Add(-1) >= 0 {
		return nil, store.ErrUnavailable
	}
	return s.Memory.Subscribe(path, fn)
}

func TestSlot_RetriesUntilSubscribed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &downStore{Memory: store.NewMemory()}
	st.fails.Store(2)
	ch := channel.New(st, "t1", zap.NewNop())
	require.NoError(t, ch.Publish(ctx, action(t, types.ActionNoWinner, nil)))

	updates := Slot{Channel: ch, Log: zap.NewNop()}.Stream(ctx)
	assert.True(t, recvUpdate(t, updates, 3*time.Second).Attach)
	assert.Equal(t, types.ActionNoWinner, recvUpdate(t, updates, time.Second).Action.Type)
	assert.Less(t, st.fails.Load(), int32(0))
}

func TestWebSocket_ReattachAfterServerClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		b, _ := types.Encode(types.Action{Type: types.ActionShowWord, Version: 1})
		_ = conn.Write(r.Context(), websocket.MessageText, b)
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	updates := WebSocket{URL: url, Log: zap.NewNop()}.Stream(ctx)

	for i := 0; i < 2; i++ {
		assert.True(t, recvUpdate(t, updates, 2*time.Second).Attach)
		assert.Equal(t, types.ActionShowWord, recvUpdate(t, updates, 2*time.Second).Action.Type)
	}
}

func TestFetchTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(templates.Set{types.ActionHideWord: {Enabled: false}})
	}))
	defer srv.Close()

	set, err := FetchTemplates(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.False(t, set.For(types.ActionHideWord).Enabled)
	assert.True(t, set.For(types.ActionShowWord).Enabled)
}
