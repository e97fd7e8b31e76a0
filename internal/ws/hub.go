// Package ws is the change stream: a hub that fans order events out to every
// connected dashboard session over websocket or server-sent events.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foodboard/api/internal/enum"
	"github.com/google/uuid"
)

const (
	// Per-session buffer. A session that falls this far behind is evicted.
	sendBufferSize = 256

	// Pending broadcasts waiting for the hub loop.
	broadcastBufferSize = 256
)

var ErrHubClosed = errors.New("hub is closed")

// Event is the envelope every session receives.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// frame is an encoded Event ready to be written by any transport.
type frame struct {
	eventType string
	data      []byte
}

func encodeEvent(eventType string, payload any) (frame, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return frame{}, err
		}
		raw = b
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: raw, SentAt: time.Now().UTC()})
	if err != nil {
		return frame{}, err
	}
	return frame{eventType: eventType, data: data}, nil
}

// Hub maintains the set of active sessions and broadcasts events to them.
// Only Run mutates the session set.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan frame
	resync     chan struct{}
	done       chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan frame, broadcastBufferSize),
		resync:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     logger.With("component", "ws"),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Debug("session registered", "session", c.id, "transport", c.transport)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("session unregistered", "session", c.id)

		case <-h.resync:
			// An event was dropped. Closing every session makes each
			// dashboard reconnect and re-pull the full board.
			h.mu.Lock()
			n := len(h.clients)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Warn("sessions closed after dropped event", "sessions", n)

		case f := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- f:
				default:
					// Session cannot keep up. Drop it; its dashboard re-pulls on reconnect.
					delete(h.clients, c)
					close(c.send)
					h.logger.Debug("session evicted, send buffer full", "session", c.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts an event to every session. It never blocks: when the
// hub is saturated the event is dropped and every session is closed, so
// dashboards reconnect and re-pull instead of waiting for the next periodic
// pull.
func (h *Hub) Publish(eventType string, payload any) {
	f, err := encodeEvent(eventType, payload)
	if err != nil {
		h.logger.Error("encode event", "type", eventType, "error", err)
		return
	}
	select {
	case <-h.done:
	case h.broadcast <- f:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", eventType)
		select {
		case h.resync <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a new session. The session's first event is always
// connected.
func (h *Hub) Subscribe(transport string) (*Client, error) {
	c := &Client{
		id:        uuid.NewString(),
		transport: transport,
		send:      make(chan frame, sendBufferSize),
	}
	hello, err := encodeEvent(enum.EventConnected, map[string]string{"session_id": c.id})
	if err != nil {
		return nil, err
	}
	c.send <- hello

	select {
	case h.register <- c:
		return c, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Unsubscribe deregisters a session. Safe to call more than once.
func (h *Hub) Unsubscribe(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one dashboard session, independent of transport.
type Client struct {
	id        string
	transport string
	send      chan frame
}

func (c *Client) ID() string { return c.id }
