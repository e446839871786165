// Package channel is the single-slot broadcast of the current display action.
// The slot keeps only the latest write: late readers see the current action,
// never the history.
package channel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type Channel struct {
	store store.Store
	path  string
	log   *zap.Logger
}

func New(st store.Store, tournamentID string, log *zap.Logger) *Channel {
	return &Channel{
		store: st,
		path:  ledger.ActionPath(tournamentID),
		log:   log,
	}
}

func (c *Channel) Publish(ctx context.Context, a types.Action) error {
	b, err := types.Encode(a)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.path, b)
}

// Current returns the action in the slot, RESET when the slot is empty.
func (c *Channel) Current(ctx context.Context) (types.Action, error) {
	b, err := c.store.Get(ctx, c.path)
	if errors.Is(err, store.ErrNotFound) {
		return types.Reset(), nil
	}
	if err != nil {
		return types.Action{}, err
	}
	return types.Decode(b)
}

// Subscribe delivers the current action and then every later one. The
// returned channel holds at most one pending action: a newer write replaces
// an undelivered one, so slow readers converge on the latest state. It is
// closed when ctx ends.
func (c *Channel) Subscribe(ctx context.Context) (<-chan types.Action, error) {
	sub := &subscription{out: make(chan types.Action, 1)}

	sub.mu.Lock()
	unsub, err := c.store.Subscribe(c.path, func(ch store.Change) {
		a := types.Reset()
		if !ch.Deleted {
			decoded, err := types.Decode(ch.Value)
			if err != nil {
				c.log.Warn("undecodable action in slot", zap.Error(err))
				return
			}
			a = decoded
		}
		sub.offer(a)
	})
	if err != nil {
		sub.mu.Unlock()
		return nil, err
	}
	cur, err := c.Current(ctx)
	if err != nil {
		sub.mu.Unlock()
		unsub()
		return nil, err
	}
	sub.put(cur)
	sub.mu.Unlock()

	go func() {
		<-ctx.Done()
		unsub()
		sub.close()
	}()
	return sub.out, nil
}

type subscription struct {
	mu     sync.Mutex
	out    chan types.Action
	closed bool
}

func (s *subscription) offer(a types.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(a)
}

// put replaces any pending action with a. Callers hold mu.
func (s *subscription) put(a types.Action) {
	if s.closed {
		return
	}
	for {
		select {
		case s.out <- a:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
