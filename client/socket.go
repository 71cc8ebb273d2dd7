// Package client implements the consuming side of the messaging service: a
// WebSocket connection with typed event dispatch, a thin REST client for
// history and inbox fetches, and a chat controller that keeps a local thread
// view in sync with the live event stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Socket is a single WebSocket connection to the messaging server. Incoming
// events are dispatched by type to registered handlers from a background read
// loop; handlers should not block for extended periods.
type Socket struct {
	conn      net.Conn
	mu        sync.Mutex
	handlerMu sync.Mutex
	handlers  map[string]func(json.RawMessage)
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the messaging server's WebSocket endpoint and starts the
// read loop. Register handlers with On before events of interest can arrive;
// the server's first event is "connected".
func Dial(ctx context.Context, url string) (*Socket, error) {
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("client: dial: %w", err)
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Emit sends a typed event to the server. The payload struct must carry its
// own "type" field. Goroutine-safe.
func (s *Socket) Emit(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsutil.WriteClientMessage(s.conn, ws.OpText, data)
}

// On registers a handler for a server event type. The handler receives the
// full raw JSON for flexible decoding. One handler per type; registering
// again replaces the previous one.
func (s *Socket) On(eventType string, handler func(json.RawMessage)) {
	s.handlerMu.Lock()
	s.handlers[eventType] = handler
	s.handlerMu.Unlock()
}

// Close closes the connection and stops the read loop. Safe to call more
// than once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) readLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		data, err := wsutil.ReadServerText(s.conn)
		if err != nil {
			select {
			case <-s.done:
			default:
				_ = s.Close()
			}
			return
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		s.handlerMu.Lock()
		handler := s.handlers[envelope.Type]
		s.handlerMu.Unlock()
		if handler != nil {
			handler(data)
		}
	}
}
