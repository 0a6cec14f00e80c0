package signals

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradesense/src/model"
)

// Hub fans generated tickets out to websocket subscribers. Writes go through
// the hub goroutine only; a slow or dead subscriber is dropped, never waited on.
type Hub struct {
	generator *Generator
	interval  time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub(generator *Generator, config Config) *Hub {
	return &Hub{
		generator: generator,
		interval:  config.FeedInterval,
		clients:   make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a subscriber connection. The hub owns the connection from
// here on and closes it when the subscriber is dropped.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = struct{}{}

	logger.WithField("subscribers", len(h.clients)).Info("Signal feed subscriber connected")
}

// Run generates a ticket every interval and broadcasts it until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logger.Info("Signal feed stopped")
			return

		case <-ticker.C:
			ticket := h.generator.Generate()
			h.broadcast(ticket)
		}
	}
}

func (h *Hub) broadcast(ticket model.SignalTicket) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(ticket); err != nil {
			logger.WithError(err).Debug("Dropping signal feed subscriber")
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
