package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler streams the broadcast slot of ?tournament=ID to a display. The
// first frame is the action current at connect time.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("tournament")
		if id == "" {
			http.Error(w, "missing tournament", http.StatusBadRequest)
			return
		}

		t, err := h.Ensure(r.Context(), id)
		if err != nil {
			log.Error("ensure tournament", zap.String("tournament", id), zap.Error(err))
			http.Error(w, "tournament unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// displays are served from other hosts on the venue network
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Warn("accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// displays never send; CloseRead handles pings and cancels ctx on close
		ctx := conn.CloseRead(r.Context())

		actions, err := t.Channel().Subscribe(ctx)
		if err != nil {
			log.Error("subscribe", zap.String("tournament", id), zap.Error(err))
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
		log.Info("display connected", zap.String("tournament", id))

		for a := range actions {
			if err := write(ctx, conn, a); err != nil {
				log.Info("display gone", zap.String("tournament", id), zap.Error(err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, a types.Action) error {
	payload, err := types.Encode(a)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
