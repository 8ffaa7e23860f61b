package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"climatedash/internal/infrastructure"
	"climatedash/pkg/contracts/events"
)

const (
	// broadcastQueueSize bounds messages waiting for the hub loop.
	broadcastQueueSize = 256

	// payloadPreview is how much of a broadcast is logged at debug level.
	payloadPreview = 256
)

type envelope struct {
	msgType events.MessageType
	data    []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan envelope, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetMetrics enables connection and message metrics
func (h *Hub) SetMetrics(metrics *Metrics) {
	h.metrics = metrics
}

// Start runs the hub loop in the background. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop ends the hub loop and disconnects every client. It waits for the
// loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			cctx := client.context(ctx)
			h.metrics.recordConnection(cctx)
			h.logger.InfoContext(cctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			welcome := events.NewMessage(events.MessageTypeConnection, map[string]interface{}{
				"status":    "connected",
				"message":   "Connected to Climate Dashboard",
				"client_id": client.id,
			})
			welcome.TraceID = client.traceID
			if data, err := json.Marshal(welcome); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.WarnContext(cctx, "client buffer full, connection message dropped",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				cctx := client.context(ctx)
				h.metrics.recordDisconnection(cctx, time.Since(client.connectedAt))
				h.logger.InfoContext(cctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, msg envelope) {
	h.mu.Lock()
	delivered, failed := 0, 0
	for client := range h.clients {
		select {
		case client.send <- msg.data:
			delivered++
		default:
			// A client that cannot keep up is disconnected.
			failed++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(ctx), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.messagesSent += int64(delivered)
	h.mu.Unlock()

	h.metrics.recordBroadcast(ctx, string(msg.msgType), delivered)

	preview := msg.data
	if len(preview) > payloadPreview {
		preview = preview[:payloadPreview]
	}
	h.logger.Debug("broadcast delivered",
		slog.String("type", string(msg.msgType)),
		slog.Int("delivered", delivered),
		slog.Int("failed", failed),
		slog.String("payload_preview", string(preview)))
}

// Broadcast queues a message for every connected client. It never blocks:
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msg events.WebSocketMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("error marshaling message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- envelope{msgType: msg.Type, data: data}:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.metrics.recordDropped(context.Background(), "broadcast_queue_full")
		h.logger.Warn("broadcast queue full, message dropped", slog.String("type", string(msg.Type)))
	}
}

// ReportProgress broadcasts a pipeline progress snapshot
func (h *Hub) ReportProgress(snapshot events.OperationSnapshot) {
	h.Broadcast(events.NewMessage(events.MessageTypeOperationProgress, snapshot))
}

// ReportComplete broadcasts the final snapshot of a pipeline run
func (h *Hub) ReportComplete(snapshot events.OperationSnapshot) {
	h.Broadcast(events.NewMessage(events.MessageTypeOperationComplete, snapshot))
}

// DatasetReloaded tells clients to refresh their figures
func (h *Hub) DatasetReloaded(ev events.DatasetReloaded) {
	h.Broadcast(events.NewMessage(events.MessageTypeDatasetReloaded, ev))
}

// Register adds a client to the hub. It returns false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for the health endpoint
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}
