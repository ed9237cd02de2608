package pubsub

import (
	"locki.app/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

// Relay forwards a subscription to a websocket client until the stream ends, the client
// disconnects or done fires.
func Relay(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug().Err(err).Str("stream", sub.kind).Msg("failed to write to websocket")
				return
			}
		case <-clientClosed:
			return
		case <-done:
			return
		}
	}
}
