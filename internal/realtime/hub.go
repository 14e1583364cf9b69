package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"boardpacks/internal/metrics"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

const clientBuffer = 16

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan ChangeEvent
	done     chan struct{}
	once     sync.Once
}

// Hub keeps the stream clients of this instance, indexed by channel.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*Client]bool
	heartbeat     time.Duration
	metrics       *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		subscriptions: make(map[string]map[*Client]bool),
		heartbeat:     15 * time.Second,
		metrics:       m,
	}
}

// SetHeartbeat changes the keep-alive comment interval of streams served afterwards.
func (h *Hub) SetHeartbeat(d time.Duration) {
	h.heartbeat = d
}

func (h *Hub) NewClient(userID uuid.UUID) *Client {
	h.metrics.ClientConnected()
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan ChangeEvent, clientBuffer),
		done:     make(chan struct{}),
	}
}

func (h *Hub) AddChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, ok := h.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[channel] = clients
	}
	clients[client] = true

	slog.Debug("stream client subscribed", slog.String("client_id", client.ID.String()), slog.String("channel", channel))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range client.Channels {
		if clients, ok := h.subscriptions[ch]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Subscribers returns the number of clients on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}

// Broadcast queues event for every client on its channel. A client whose buffer is full misses
// the event.
func (h *Hub) Broadcast(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.Channel == "" {
		return
	}
	for c := range h.subscriptions[event.Channel] {
		select {
		case c.Outbound <- event:
		default:
			h.metrics.EventDropped()
			slog.Warn("dropping section change; client buffer full", slog.String("client_id", c.ID.String()))
		}
	}
}

// ServeHTTP streams the client's events until the request ends or the client is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event := <-client.Outbound:
			data, err := json.Marshal(event)
			if err != nil {
				slog.Warn("failed to marshal section change", tint.Err(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", strings.ToLower(string(event.Type)), data)
			flusher.Flush()
		}
	}
}

// CloseClient unsubscribes client from every channel. It is safe to call more than once.
func (h *Hub) CloseClient(client *Client) {
	client.once.Do(func() {
		close(client.done)
		h.removeClient(client)
		h.metrics.ClientDisconnected()
	})
}
