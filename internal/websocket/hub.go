package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when sending to a client that has been closed
	ErrClientClosed = errors.New("client is closed")
	// ErrClientSlow is returned when a client's send buffer is full
	ErrClientSlow = errors.New("client send buffer is full")
)

// Drop reasons reported to HubMetrics
const (
	DropReasonSlow     = "slow"
	DropReasonClosed   = "closed"
	DropReasonLimit    = "limit"
	DropReasonShutdown = "shutdown"
)

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	GymID() uuid.UUID
	Send(data []byte) error
	Close() error
}

// closeWither is implemented by clients that can tell the peer why they are disconnected
type closeWither interface {
	CloseWith(code int, reason string) error
}

// HubMetrics receives connection gauges and drop counts
type HubMetrics interface {
	SetWebSocketClients(n int)
	RecordWebSocketDrop(reason string)
}

// Hub fans billing events out to the connections of each gym.
// It is safe for concurrent use.
type Hub struct {
	gyms    map[uuid.UUID]map[string]ClientInterface
	total   int
	metrics HubMetrics
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		gyms: make(map[uuid.UUID]map[string]ClientInterface),
	}
}

// SetMetrics sets the metrics sink. Call before clients connect.
func (h *Hub) SetMetrics(metrics HubMetrics) {
	h.metrics = metrics
}

// Register adds a client to the hub under its gym
func (h *Hub) Register(client ClientInterface) {
	h.TryRegister(client, 0)
}

// TryRegister adds a client unless its gym already has limit clients.
// A limit of zero or less means unlimited.
func (h *Hub) TryRegister(client ClientInterface, limit int) bool {
	h.mu.Lock()
	gymID := client.GymID()
	clients := h.gyms[gymID]
	if limit > 0 && len(clients) >= limit {
		h.mu.Unlock()
		h.recordDrop(DropReasonLimit)
		log.Warn().
			Str("gym_id", gymID.String()).
			Int("limit", limit).
			Msg("WebSocket client rejected: gym connection limit reached")
		return false
	}
	if clients == nil {
		clients = make(map[string]ClientInterface)
		h.gyms[gymID] = clients
	}
	if _, exists := clients[client.ID()]; !exists {
		h.total++
	}
	clients[client.ID()] = client
	total := h.total
	h.mu.Unlock()

	h.reportClients(total)
	log.Debug().
		Str("gym_id", gymID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
	return true
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := h.total
	h.mu.Unlock()

	if removed {
		h.reportClients(total)
	}
}

func (h *Hub) removeLocked(client ClientInterface) bool {
	gymID := client.GymID()
	clients, ok := h.gyms[gymID]
	if !ok {
		return false
	}
	if _, exists := clients[client.ID()]; !exists {
		return false
	}
	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.gyms, gymID)
	}
	h.total--

	log.Debug().
		Str("gym_id", gymID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
	return true
}

// Broadcast sends an event to every client of a gym.
// Clients that cannot keep up are disconnected with a policy-violation close frame;
// they reconnect and refetch.
func (h *Hub) Broadcast(gymID uuid.UUID, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("gym_id", gymID.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients := make([]ClientInterface, 0, len(h.gyms[gymID]))
	for _, client := range h.gyms[gymID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	delivered := 0
	for _, client := range clients {
		err := client.Send(data)
		if err == nil {
			delivered++
			continue
		}

		reason := DropReasonClosed
		if errors.Is(err, ErrClientSlow) {
			reason = DropReasonSlow
		}
		log.Warn().
			Err(err).
			Str("gym_id", gymID.String()).
			Str("client_id", client.ID()).
			Str("reason", reason).
			Msg("Dropping WebSocket client")
		h.Unregister(client)
		h.recordDrop(reason)
		if reason == DropReasonSlow {
			disconnect(client, websocket.ClosePolicyViolation, "client too slow")
		} else {
			_ = client.Close()
		}
	}

	log.Debug().
		Str("gym_id", gymID.String()).
		Str("event_type", event.Type).
		Int("client_count", delivered).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected for a gym
func (h *Hub) ClientCount(gymID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.gyms[gymID])
}

// TotalClientCount returns the total number of connected clients across all gyms
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// CloseAll disconnects every client with a going-away frame, used on server shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []ClientInterface
	for _, clients := range h.gyms {
		for _, c := range clients {
			all = append(all, c)
		}
	}
	h.gyms = make(map[uuid.UUID]map[string]ClientInterface)
	h.total = 0
	h.mu.Unlock()

	h.reportClients(0)
	for _, c := range all {
		h.recordDrop(DropReasonShutdown)
		disconnect(c, websocket.CloseGoingAway, "server shutting down")
	}
}

func (h *Hub) reportClients(n int) {
	if h.metrics != nil {
		h.metrics.SetWebSocketClients(n)
	}
}

func (h *Hub) recordDrop(reason string) {
	if h.metrics != nil {
		h.metrics.RecordWebSocketDrop(reason)
	}
}

func disconnect(client ClientInterface, code int, reason string) {
	if cw, ok := client.(closeWither); ok {
		_ = cw.CloseWith(code, reason)
		return
	}
	_ = client.Close()
}
