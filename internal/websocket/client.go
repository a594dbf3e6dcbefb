package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// maxMessageSize bounds inbound frames; the channel is server to client only
const maxMessageSize = 512

// ClientConfig holds per-connection timing and buffering
type ClientConfig struct {
	WriteWait  time.Duration // time allowed to write one frame
	PongWait   time.Duration // time allowed between pongs
	SendBuffer int           // events queued before the client counts as slow
}

// DefaultClientConfig returns the settings used for dashboard connections
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		SendBuffer: 64,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	return c
}

// pingPeriod must stay below PongWait so the peer answers in time
func (c ClientConfig) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// Client is one dashboard connection of a gym.
// The connection itself is closed by WritePump after it sends the close frame.
type Client struct {
	id     string
	gymID  uuid.UUID
	conn   *websocket.Conn
	hub    *Hub
	config ClientConfig
	send   chan []byte

	mu          sync.RWMutex
	closed      bool
	closeCode   int
	closeReason string
	closeOnce   sync.Once
}

// NewClient creates a client with the default configuration
func NewClient(conn *websocket.Conn, gymID uuid.UUID, hub *Hub) *Client {
	return NewClientWithConfig(conn, gymID, hub, DefaultClientConfig())
}

// NewClientWithConfig creates a client; zero config fields take their defaults
func NewClientWithConfig(conn *websocket.Conn, gymID uuid.UUID, hub *Hub, config ClientConfig) *Client {
	config = config.withDefaults()
	return &Client{
		id:        uuid.New().String(),
		gymID:     gymID,
		conn:      conn,
		hub:       hub,
		config:    config,
		send:      make(chan []byte, config.SendBuffer),
		closeCode: websocket.CloseNormalClosure,
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// GymID returns the gym the client is subscribed to
func (c *Client) GymID() uuid.UUID {
	return c.gymID
}

// Send queues a message without blocking. A full queue returns ErrClientSlow.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close ends the connection with a normal closure
func (c *Client) Close() error {
	return c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith stops accepting events; WritePump flushes what is queued,
// sends a close frame with code and reason, and closes the connection.
// Only the first call has an effect.
func (c *Client) CloseWith(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.closeCode = code
		c.closeReason = reason
		close(c.send)
		c.mu.Unlock()
	})
	return nil
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) closeFrame() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// ReadPump consumes control frames until the peer goes away.
// This should be run in a goroutine
func (c *Client) ReadPump() {
	defer func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("gym_id", c.gymID.String()).
					Msg("WebSocket unexpected close")
			}
			return
		}
	}
}

// WritePump delivers queued events and keeps the connection alive with pings.
// This should be run in a goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("gym_id", c.gymID.String()).
					Msg("WebSocket write error")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
