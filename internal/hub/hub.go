package hub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/tournament"
)

var ErrExists = errors.New("tournament already exists")
var ErrNotFound = errors.New("tournament not found")
var ErrStopped = errors.New("hub stopped")

// Factory builds the controller for id. It runs on the hub loop.
type Factory func(ctx context.Context, id string) (*tournament.Tournament, error)

type HubMsg interface{ isHubMsg() }

type Reply struct {
	T   *tournament.Tournament
	Err error
}

// CreateTournament fails with ErrExists when id is already running.
type CreateTournament struct {
	ID    string
	Reply chan Reply
}

type GetTournament struct {
	ID    string
	Reply chan Reply
}

// EnsureTournament returns the running controller for id, starting one from
// the stored ledger if needed.
type EnsureTournament struct {
	ID    string
	Reply chan Reply
}

type RemoveTournament struct {
	ID string
}

type ListTournaments struct {
	Reply chan []string
}

type ShutdownHub struct {
	Done chan struct{}
}

func (CreateTournament) isHubMsg() {}
func (GetTournament) isHubMsg()    {}
func (EnsureTournament) isHubMsg() {}
func (RemoveTournament) isHubMsg() {}
func (ListTournaments) isHubMsg()  {}
func (ShutdownHub) isHubMsg()      {}

type Hub struct {
	inbox       chan HubMsg
	tournaments map[string]*tournament.Tournament
	factory     Factory
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:       make(chan HubMsg, 64),
		tournaments: make(map[string]*tournament.Tournament),
		factory:     factory,
		log:         log.Named("hub"),
		ctx:         ctx,
		cancel:      cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Create(ctx context.Context, id string) (*tournament.Tournament, error) {
	reply := make(chan Reply, 1)
	return h.ask(ctx, CreateTournament{ID: id, Reply: reply}, reply)
}

func (h *Hub) Get(ctx context.Context, id string) (*tournament.Tournament, error) {
	reply := make(chan Reply, 1)
	return h.ask(ctx, GetTournament{ID: id, Reply: reply}, reply)
}

func (h *Hub) Ensure(ctx context.Context, id string) (*tournament.Tournament, error) {
	reply := make(chan Reply, 1)
	return h.ask(ctx, EnsureTournament{ID: id, Reply: reply}, reply)
}

// Shutdown stops every tournament and waits until they have exited.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case h.inbox <- ShutdownHub{Done: done}:
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ask(ctx context.Context, m HubMsg, reply chan Reply) (*tournament.Tournament, error) {
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
	select {
	case r := <-reply:
		return r.T, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateTournament:
				if h.tournaments[msg.ID] != nil {
					msg.Reply <- Reply{Err: fmt.Errorf("%w: %s", ErrExists, msg.ID)}
					break
				}
				msg.Reply <- h.start(msg.ID)

			case GetTournament:
				if t := h.tournaments[msg.ID]; t != nil {
					msg.Reply <- Reply{T: t}
					break
				}
				msg.Reply <- Reply{Err: fmt.Errorf("%w: %s", ErrNotFound, msg.ID)}

			case EnsureTournament:
				if t := h.tournaments[msg.ID]; t != nil {
					msg.Reply <- Reply{T: t}
					break
				}
				msg.Reply <- h.start(msg.ID)

			case RemoveTournament:
				if t := h.tournaments[msg.ID]; t != nil {
					t.Close()
					delete(h.tournaments, msg.ID)
				}

			case ListTournaments:
				ids := make([]string, 0, len(h.tournaments))
				for id := range h.tournaments {
					ids = append(ids, id)
				}
				msg.Reply <- ids

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				close(msg.Done)
				return
			}
		}
	}
}

func (h *Hub) start(id string) Reply {
	t, err := h.factory(h.ctx, id)
	if err != nil {
		h.log.Error("start tournament", zap.String("tournament", id), zap.Error(err))
		return Reply{Err: err}
	}
	h.tournaments[id] = t
	h.log.Info("tournament started", zap.String("tournament", id))
	return Reply{T: t}
}

func (h *Hub) shutdown() {
	for _, t := range h.tournaments {
		t.Close()
	}
	clear(h.tournaments)
}
