package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

const defaultWriteTimeout = 5 * time.Second

// wsConn adapts a gorilla connection to Conn. gorilla allows one concurrent
// writer, so writes are serialized.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) Send(ctx context.Context, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, message)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.ws.Close() })
	return err
}

// WebSocketHandler upgrades display clients and keeps them registered until
// they disconnect.
type WebSocketHandler struct {
	registry     *Registry
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *logger.Logger
}

func NewWebSocketHandler(registry *Registry, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeTimeout: defaultWriteTimeout,
		logger:       log,
	}
}

// SetupRoutes registers GET /ws?restaurant_id=&role=.
func (h *WebSocketHandler) SetupRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

func (h *WebSocketHandler) Serve(c echo.Context) error {
	restaurantID := c.QueryParam("restaurant_id")
	role := c.QueryParam("role")
	if role == "" {
		role = "UNKNOWN"
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("ws_upgrade_failed", "WebSocket upgrade failed", "", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	if restaurantID == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "restaurant_id query parameter is required")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return nil
	}

	conn := &wsConn{ws: ws, writeTimeout: h.writeTimeout}
	h.registry.Register(conn, restaurantID)
	h.logger.Debug("ws_client_role", "Display role", "", map[string]interface{}{
		"restaurant_id": restaurantID,
		"role":          role,
	})
	defer func() {
		h.registry.Unregister(conn)
		_ = conn.Close()
	}()

	// Displays only listen; reading drives pings and detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}
