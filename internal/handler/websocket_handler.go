package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/gymcrm/gymcrm-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTValidator validates JWT tokens and returns the gym the subject owns
type JWTValidator interface {
	ValidateToken(ctx context.Context, token string) (gymID uuid.UUID, err error)
}

// WebSocketOptions bounds the dashboard connections a gym may hold
type WebSocketOptions struct {
	MaxConnectionsPerGym int // 0 = unlimited
	Client               websocket.ClientConfig
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *websocket.Hub
	validator      JWTValidator
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
	options        WebSocketOptions
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator JWTValidator, allowedOrigins []string, options WebSocketOptions) *WebSocketHandler {
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: originMap,
		options:        options,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Allow requests with no Origin header (e.g., same-origin or non-browser clients)
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws.
// Clients receive billing and dashboard events of their own gym only.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		log.Debug().Msg("WebSocket connection rejected: missing token")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	gymID, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket connection rejected: invalid token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	limit := h.options.MaxConnectionsPerGym
	if limit > 0 && h.hub.ClientCount(gymID) >= limit {
		log.Warn().
			Str("gym_id", gymID.String()).
			Int("limit", limit).
			Msg("WebSocket connection rejected: gym connection limit reached")
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many connections for this gym")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClientWithConfig(conn, gymID, h.hub, h.options.Client)
	go client.WritePump()

	// Another connection of the gym may have registered since the check above
	if !h.hub.TryRegister(client, limit) {
		client.CloseWith(ws.ClosePolicyViolation, "too many connections for this gym")
		return nil
	}

	log.Info().
		Str("gym_id", gymID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.ReadPump()

	return nil
}
