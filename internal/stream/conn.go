package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the client depends on.
// One goroutine may read while another writes control frames or closes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// DialFunc opens a connection to a streaming endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

// NewWebsocketDialer returns a DialFunc backed by gorilla/websocket.
func NewWebsocketDialer(handshakeTimeout time.Duration) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	return func(ctx context.Context, endpoint string) (Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("error connecting to websocket: %w, status: %s", err, resp.Status)
			}

			return nil, fmt.Errorf("error connecting to websocket: %w", err)
		}

		return conn, nil
	}
}
