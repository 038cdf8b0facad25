package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"oddsbook/core/events"
	"oddsbook/core/types"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.allow(s.clientIP(r)) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamBookEvents(r.Context(), conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamBookEvents(ctx context.Context, conn *websocket.Conn) error {
	updates := s.node.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeBookEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeBookEvent(ctx context.Context, conn *websocket.Conn, evt events.Event) error {
	payload := map[string]interface{}{"type": evt.EventType()}
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		payload["attributes"] = provider.Event().Attributes
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
