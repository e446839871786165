package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/channel"
	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/words"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

var ErrClosed = errors.New("tournament closed")

const noticeReplenished = "word pool ran out and was refilled from the original list"

type Options struct {
	ShuffleDuration time.Duration
	ShuffleInterval time.Duration
	Rand            engine.Rand
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ShuffleDuration <= 0 {
		o.ShuffleDuration = 3 * time.Second
	}
	if o.ShuffleInterval <= 0 {
		o.ShuffleInterval = 150 * time.Millisecond
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type shuffleTask struct {
	gen  int
	stop chan struct{}
	done chan struct{}
}

// Tournament is the single writer for one tournament: it owns the duel state,
// persists the ledger and publishes display actions. Everything runs on the
// loop goroutine except the shuffle task, which only sends messages back.
type Tournament struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	opts    Options

	store   store.Store
	channel *channel.Channel
	log     *zap.Logger

	shuffle      *shuffleTask
	shuffleGen   int
	liveShuffles atomic.Int32

	winnerSeq   int64
	rosterStale atomic.Bool
	own         ownWrites
	unsubRoster func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, id string, st store.Store, opts Options, log *zap.Logger) (*Tournament, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)

	roster, err := ledger.Load(ctx, st, id)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load roster: %w", err)
	}
	history, err := ledger.LoadWinners(ctx, st, id)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load winners: %w", err)
	}

	t := &Tournament{
		id:      id,
		inbox:   make(chan Msg, 64),
		state:   engine.NewState(),
		opts:    opts,
		store:   st,
		channel: channel.New(st, id, log.Named("channel")),
		log:     log.Named("tournament").With(zap.String("tournament", id)),
		own:     ownWrites{under: ledger.ParticipantsPath(id)},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	t.state.Participants = roster
	if n := len(history); n > 0 {
		t.winnerSeq = history[n-1].Seq
	}

	unsub, err := st.Subscribe(ledger.ParticipantsPath(id), t.onRosterChange)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe roster: %w", err)
	}
	t.unsubRoster = unsub

	// a fresh controller knows nothing about what the display shows
	t.publish(types.Reset())

	go t.loop()
	return t, nil
}

func (t *Tournament) ID() string { return t.id }

// Channel is the broadcast slot displays read from.
func (t *Tournament) Channel() *channel.Channel { return t.channel }

// Expose the inbox so tests or the HTTP layer can send messages.
func (t *Tournament) Inbox() chan<- Msg { return t.inbox }

// Do sends cmd and waits for its result.
func (t *Tournament) Do(ctx context.Context, cmd engine.Command) Result {
	reply := make(chan Result, 1)
	return t.roundTrip(ctx, FromOperator{Cmd: cmd, Reply: reply}, reply)
}

func (t *Tournament) ResetDisplay(ctx context.Context) Result {
	reply := make(chan Result, 1)
	return t.roundTrip(ctx, ResetDisplay{Reply: reply}, reply)
}

func (t *Tournament) Clear(ctx context.Context) Result {
	reply := make(chan Result, 1)
	return t.roundTrip(ctx, Clear{Reply: reply}, reply)
}

// ReplaceRoster stores r as the whole roster. It fails with
// engine.ErrInvalidTransition unless the tournament is idle.
func (t *Tournament) ReplaceRoster(ctx context.Context, r ledger.Roster) Result {
	reply := make(chan Result, 1)
	return t.roundTrip(ctx, ReplaceRoster{Roster: r, Reply: reply}, reply)
}

func (t *Tournament) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case t.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-t.ctx.Done():
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (t *Tournament) roundTrip(ctx context.Context, m Msg, reply chan Result) Result {
	select {
	case t.inbox <- m:
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-t.ctx.Done():
		return Result{Err: ErrClosed}
	}
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-t.ctx.Done():
		return Result{Err: ErrClosed}
	}
}

// Close stops the loop and waits for it, including any live shuffle task.
func (t *Tournament) Close() {
	t.cancel()
	<-t.done
}

// Done is closed once the loop has exited.
func (t *Tournament) Done() <-chan struct{} { return t.done }

func (t *Tournament) loop() {
	defer close(t.done)
	for {
		select {
		case <-t.ctx.Done():
			t.shutdown()
			return

		case m := <-t.inbox:
			switch msg := m.(type) {
			case FromOperator:
				reply(msg.Reply, t.handleCommand(msg.Cmd))

			case ResetDisplay:
				reply(msg.Reply, t.publish(types.Reset()))

			case Clear:
				reply(msg.Reply, t.clear())

			case ReplaceRoster:
				reply(msg.Reply, t.replaceRoster(msg.Roster))

			case shuffleTick:
				t.onShuffleTick(msg.gen)

			case shuffleDone:
				t.onShuffleDone(msg.gen)

			case rosterChanged:
				t.reloadRoster()

			case GetState:
				msg.Reply <- t.view()

			case Shutdown:
				t.shutdown()
				return
			}
		}
	}
}

func reply(ch chan Result, r Result) {
	if ch != nil {
		ch <- r
	}
}

func (t *Tournament) handleCommand(cmd engine.Command) Result {
	if cmd.Type == engine.CmdSelectWordList {
		list, err := t.loadWordList(cmd.ListID)
		if err != nil {
			return t.reject(cmd, err)
		}
		cmd.List = &list
	}

	events, next, err := engine.Apply(t.state, cmd, t.opts.Rand)
	if err != nil {
		return t.reject(cmd, err)
	}

	entries := t.winnerEntries(events, next)
	if err := t.persist(t.state.Participants, next.Participants, entries); err != nil {
		// state stays at the last persisted ledger; the operator retries
		t.log.Error("persist failed, command dropped", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Err: err}
	}
	t.winnerSeq += int64(len(entries))

	prev := t.state
	t.state = next
	if prev.Phase == engine.PhaseShuffling && next.Phase != engine.PhaseShuffling {
		t.stopShuffle()
	}

	var res Result
	for _, e := range events {
		if e.Type == engine.EvtPoolReplenished {
			t.log.Info("word pool replenished", zap.String("list", next.Supply.ListID))
			res.Notices = append(res.Notices, noticeReplenished)
		}
		a, ok, err := actionFor(e)
		if err != nil {
			t.log.Error("build action", zap.String("event", string(e.Type)), zap.Error(err))
			continue
		}
		if ok {
			res.Notices = append(res.Notices, t.publish(a).Notices...)
		}
	}
	if engine.ContainsEvent(events, engine.EvtShuffleStarted) {
		t.startShuffle()
	}

	t.log.Debug("command applied", zap.String("cmd", string(cmd.Type)), zap.String("phase", string(next.Phase)))
	if next.Phase == engine.PhaseIdle && t.rosterStale.Load() {
		t.reloadRoster()
	}
	return res
}

func (t *Tournament) reject(cmd engine.Command, err error) Result {
	if errors.Is(err, engine.ErrInvalidTransition) {
		t.log.Warn("invalid transition", zap.String("cmd", string(cmd.Type)),
			zap.String("phase", string(t.state.Phase)), zap.Error(err))
	} else {
		t.log.Info("command rejected", zap.String("cmd", string(cmd.Type)), zap.Error(err))
	}
	return Result{Err: err}
}

func (t *Tournament) loadWordList(id string) (words.List, error) {
	raw, err := t.store.Get(t.ctx, ledger.WordListPath(id))
	if err != nil {
		return words.List{}, fmt.Errorf("word list %q: %w", id, err)
	}
	var list words.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return words.List{}, fmt.Errorf("decode word list %q: %w", id, err)
	}
	if list.ID == "" {
		list.ID = id
	}
	return list, nil
}

func (t *Tournament) winnerEntries(events []engine.Event, next engine.State) []ledger.WinnerEntry {
	var entries []ledger.WinnerEntry
	for _, e := range events {
		if e.Type != engine.EvtStarAwarded {
			continue
		}
		p, _, _ := next.Participants.Find(e.ParticipantID)
		entries = append(entries, ledger.WinnerEntry{
			Seq:   t.winnerSeq + int64(len(entries)) + 1,
			Name:  p.Name,
			Word:  e.Word,
			Stars: 1,
			At:    t.opts.Now(),
		})
	}
	return entries
}

func (t *Tournament) persist(prev, next ledger.Roster, entries []ledger.WinnerEntry) error {
	writes, err := ledger.Writes(t.id, prev, next, entries)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	return t.write(writes)
}

func (t *Tournament) write(writes []store.Write) error {
	t.own.expect(writes)
	if err := t.store.Update(t.ctx, writes); err != nil {
		t.own.forget(writes)
		return asUnavailable(err)
	}
	return nil
}

func asUnavailable(err error) error {
	if err == nil || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

// publish stamps a with the next version and writes it to the slot. Failures
// only affect the display, so they come back as notices.
func (t *Tournament) publish(a types.Action) Result {
	t.version++
	a.Version = t.version
	if err := t.channel.Publish(t.ctx, a); err != nil {
		t.log.Error("publish action", zap.String("type", string(a.Type)), zap.Error(err))
		return Result{Notices: []string{fmt.Sprintf("display not updated: %v", err)}}
	}
	t.log.Debug("published", zap.String("type", string(a.Type)), zap.Int("version", a.Version))
	return Result{}
}

func (t *Tournament) clear() Result {
	t.stopShuffle()
	writes, err := ledger.ClearWrites(t.ctx, t.store, t.id)
	if err == nil && len(writes) > 0 {
		err = t.write(writes)
	}
	if err != nil {
		t.log.Error("clear failed", zap.Error(err))
		return Result{Err: asUnavailable(err)}
	}

	next := engine.NewState()
	next.Settings = t.state.Settings
	next.Supply = words.Select(words.List{ID: t.state.Supply.ListID, Words: t.state.Supply.Original})
	t.state = next
	t.rosterStale.Store(false)
	t.log.Info("tournament cleared")
	return t.publish(types.Reset())
}

// replaceRoster swaps the whole roster between rounds. Checking the phase
// and writing happen on the loop, so no round can start in between.
func (t *Tournament) replaceRoster(r ledger.Roster) Result {
	if t.state.Phase != engine.PhaseIdle {
		err := fmt.Errorf("%w: roster can only change while idle, phase is %s", engine.ErrInvalidTransition, t.state.Phase)
		t.log.Warn("roster replace rejected", zap.Error(err))
		return Result{Err: err}
	}
	existing, err := t.store.List(t.ctx, ledger.ParticipantsPath(t.id))
	if err != nil {
		return Result{Err: asUnavailable(err)}
	}
	writes, err := ledger.SaveWrites(t.id, existing, r)
	if err != nil {
		return Result{Err: err}
	}
	if len(writes) > 0 {
		if err := t.write(writes); err != nil {
			t.log.Error("replace roster", zap.Error(err))
			return Result{Err: err}
		}
	}

	_, next, err := engine.Apply(t.state, engine.Command{Type: engine.CmdLoadRoster, Roster: r}, t.opts.Rand)
	if err != nil {
		return Result{Err: err}
	}
	t.state = next
	t.log.Info("roster replaced", zap.Int("participants", len(r)))
	t.reloadRoster()
	return Result{}
}

func (t *Tournament) onRosterChange(c store.Change) {
	if t.own.echo(c) {
		return
	}
	t.rosterStale.Store(true)
	select {
	case t.inbox <- rosterChanged{}:
	default:
	}
}

// reloadRoster re-projects the roster from the store. Outside idle it only
// marks the roster stale; the reload happens on the way back to idle.
func (t *Tournament) reloadRoster() {
	if t.state.Phase != engine.PhaseIdle {
		return
	}
	// cleared before reading so an edit landing mid-load marks it again
	if !t.rosterStale.Swap(false) {
		return
	}
	roster, err := ledger.Load(t.ctx, t.store, t.id)
	if err != nil {
		t.rosterStale.Store(true)
		t.log.Error("reload roster", zap.Error(err))
		return
	}
	_, next, err := engine.Apply(t.state, engine.Command{Type: engine.CmdLoadRoster, Roster: roster}, t.opts.Rand)
	if err != nil {
		t.log.Error("apply roster", zap.Error(err))
		return
	}
	t.state = next
	t.log.Info("roster reloaded", zap.Int("participants", len(roster)))
}

func (t *Tournament) view() View {
	s := t.state
	return View{
		ID:           t.id,
		Version:      t.version,
		Phase:        s.Phase,
		Participants: s.Participants.Clone(),
		Duel:         s.Duel,
		Words:        slices.Clone(s.Words),
		ListID:       s.Supply.ListID,
		Remaining:    len(s.Supply.Remaining),
		Settings:     s.Settings,
		Outcome:      s.Outcome,
		ShuffleTasks: int(t.liveShuffles.Load()),
	}
}

func (t *Tournament) shutdown() {
	t.stopShuffle()
	if t.unsubRoster != nil {
		t.unsubRoster()
		t.unsubRoster = nil
	}
	t.cancel()
	t.log.Info("tournament stopped")
}
