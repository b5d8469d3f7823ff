package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// streamWriteTimeout bounds each outbound frame so one stuck client
// cannot pin the handler goroutine.
const streamWriteTimeout = 5 * time.Second

// handleNotificationStream pushes notifications over a websocket. The
// client receives the current active set on connect, then every new
// notification until it disconnects or falls behind.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	feed, cancel := s.hub.Subscribe()
	defer cancel()

	ctx := r.Context()
	for _, note := range s.hub.Active() {
		if err := writeFrame(ctx, conn, note); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case note, ok := <-feed:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber lagged")
				return
			}
			if err := writeFrame(ctx, conn, note); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("notification stream ended", "error", err)
				}
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, payload interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, payload)
}
