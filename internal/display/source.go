package display

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/channel"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

// Source streams updates for one tournament until ctx ends. Every
// (re)connection is announced with an Attach update.
type Source interface {
	Stream(ctx context.Context) <-chan Update
}

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// WebSocket follows the controller's display stream.
type WebSocket struct {
	URL string
	Log *zap.Logger
}

func (s WebSocket) Stream(ctx context.Context) <-chan Update {
	out := make(chan Update, 1)
	go func() {
		defer close(out)
		backoff := minBackoff
		for {
			attached, err := s.session(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if attached {
				backoff = minBackoff
			}
			s.Log.Warn("display stream lost", zap.String("url", s.URL), zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}()
	return out
}

var errSessionEnded = errors.New("stream closed by server")

func (s WebSocket) session(ctx context.Context, out chan<- Update) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, s.URL, nil)
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	s.Log.Info("display attached", zap.String("url", s.URL))

	if !send(ctx, out, Update{Attach: true}) {
		return true, ctx.Err()
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return true, errSessionEnded
			}
			return true, err
		}
		a, err := types.Decode(data)
		if err != nil {
			s.Log.Warn("bad action frame", zap.Error(err))
			continue
		}
		if !send(ctx, out, Update{Action: a}) {
			return true, ctx.Err()
		}
	}
}

// Slot follows the broadcast slot directly through the shared store.
type Slot struct {
	Channel *channel.Channel
	Log     *zap.Logger
}

func (s Slot) Stream(ctx context.Context) <-chan Update {
	out := make(chan Update, 1)
	go func() {
		defer close(out)
		backoff := minBackoff
		for {
			attached, err := s.session(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if attached {
				backoff = minBackoff
			}
			s.Log.Warn("slot subscription lost", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}()
	return out
}

var errSlotClosed = errors.New("slot subscription closed")

func (s Slot) session(ctx context.Context, out chan<- Update) (bool, error) {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	actions, err := s.Channel.Subscribe(subCtx)
	if err != nil {
		return false, err
	}
	if !send(ctx, out, Update{Attach: true}) {
		return true, ctx.Err()
	}
	for a := range actions {
		if !send(ctx, out, Update{Action: a}) {
			return true, ctx.Err()
		}
	}
	return true, errSlotClosed
}

func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
