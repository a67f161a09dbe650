package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

// EventLogClient represents a single connected live log viewer.
type EventLogClient struct {
	Conn *websocket.Conn
	// Event limits the stream to one event name when set.
	Event string
	Send  chan []byte
}

// NewEventLogClient creates a client with a buffered send queue.
func NewEventLogClient(conn *websocket.Conn, event string, buffer int) *EventLogClient {
	return &EventLogClient{Conn: conn, Event: event, Send: make(chan []byte, buffer)}
}

// EventLogBroadcaster manages all connected viewers and broadcasts new entries.
type EventLogBroadcaster struct {
	clients    map[*EventLogClient]bool
	register   chan *EventLogClient
	unregister chan *EventLogClient
	broadcast  chan *tracking.LogEntry
	done       chan struct{}
	logger     *logging.ChanneledLogger
	mu         sync.RWMutex
}

// NewEventLogBroadcaster creates a new broadcaster instance.
func NewEventLogBroadcaster(logger *logging.ChanneledLogger) *EventLogBroadcaster {
	return &EventLogBroadcaster{
		clients:    make(map[*EventLogClient]bool),
		register:   make(chan *EventLogClient),
		unregister: make(chan *EventLogClient),
		broadcast:  make(chan *tracking.LogEntry, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *EventLogBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(b.done)
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.Sink().Debug("Log stream client registered", "event", client.Event)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.Sink().Debug("Log stream client unregistered", "event", client.Event)

		case entry := <-b.broadcast:
			b.send(entry)
		}
	}
}

// Register queues a client for registration. After shutdown the client's
// send channel is closed immediately.
func (b *EventLogBroadcaster) Register(client *EventLogClient) {
	select {
	case b.register <- client:
	case <-b.done:
		close(client.Send)
	}
}

// Unregister queues a client for unregistration.
func (b *EventLogBroadcaster) Unregister(client *EventLogClient) {
	select {
	case b.unregister <- client:
	case <-b.done:
	}
}

// Publish queues an entry for broadcast. Entries are dropped when the
// queue is full.
func (b *EventLogBroadcaster) Publish(entry *tracking.LogEntry) {
	select {
	case b.broadcast <- entry:
	default:
		b.logger.Sink().Warn("Log stream queue full, dropping entry", "event", entry.EventName)
	}
}

// ClientCount returns the number of registered viewers.
func (b *EventLogBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *EventLogBroadcaster) send(entry *tracking.LogEntry) {
	message, err := json.Marshal(entry)
	if err != nil {
		b.logger.Sink().Error("Failed to marshal log entry", "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		if client.Event != "" && client.Event != entry.EventName {
			continue
		}
		select {
		case client.Send <- message:
		default:
			// slow viewer, skip
			b.logger.Sink().Warn("Log stream client too slow, dropping entry", "event", entry.EventName)
		}
	}
}
