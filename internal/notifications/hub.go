package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"scribe/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max total connections
	maxTotalConns = 10000
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("feed hub is shut down")

// FeedHub tracks live feed subscribers and broadcasts feed events to them.
type FeedHub struct {
	mu     sync.RWMutex
	conns  map[*Client]struct{}
	closed bool
	logger *observability.WSLogger
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		conns:  make(map[*Client]struct{}),
		logger: observability.NewWSLogger("feed"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *FeedHub) Name() string { return "feed hub" }

// Register adds a subscriber. userID may be empty.
func (h *FeedHub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.conns) >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.conns[client] = struct{}{}
	observability.FeedSubscribers.Inc()
	h.logger.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes a subscriber and closes its send buffer.
func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	close(client.Send)
	observability.FeedSubscribers.Dec()
	h.logger.LogDisconnect(context.Background(), client.UserID, "unregistered")
}

// Count returns the number of connected subscribers.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// BroadcastAll sends message to every connected websocket client.
func (h *FeedHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.TrySend(message)
	}
}

// StartWiring subscribes the hub to feed events published by any instance.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.conns {
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for %s: %v", client.label(), err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for %s: %v", client.label(), err)
			}
		}
		close(client.Send)
		observability.FeedSubscribers.Dec()
	}
	h.conns = make(map[*Client]struct{})
	return nil
}
