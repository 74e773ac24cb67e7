package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"votebooth/internal/queue/models"
	"votebooth/pkg/requestcontext"
)

const (
	observerBuffer     = 64
	streamWriteTimeout = 5 * time.Second
)

// Observers is the subscription side of the broadcast hub.
type Observers interface {
	Subscribe(buffer int) chan models.Event
	Unsubscribe(ch chan models.Event)
}

// HandleStream handles GET /queue/stream. It upgrades to a websocket and
// forwards queue events until either side goes away. Displays only listen;
// anything they send is discarded.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.origins) > 0 {
		opts.OriginPatterns = h.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.WarnContext(r.Context(), "queue stream upgrade failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := h.observers.Subscribe(observerBuffer)
	defer h.observers.Unsubscribe(sub)

	_ = wsjson.Write(ctx, conn, map[string]string{"type": "ready"}) //nolint:errcheck // a dead peer surfaces on the next read
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case event, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
