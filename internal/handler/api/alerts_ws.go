package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
)

// AlertHub fans LOW_STOCK_ALERT events out to websocket subscribers.
type AlertHub struct {
	logger       *xlogger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

var _ service.AlertBroadcaster = (*AlertHub)(nil)

func NewAlertHub(logger *xlogger.Logger, pingInterval time.Duration) *AlertHub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &AlertHub{
		logger:       logger,
		pingInterval: pingInterval,
		writeTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast queues the alert for every subscriber. Slow subscribers miss the
// message instead of blocking the monitor.
func (h *AlertHub) Broadcast(alert *models.LowStockAlert) {
	b, err := json.Marshal(alert)
	if err != nil {
		h.logger.Error("alert marshal failed", xlogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("alert dropped for slow subscriber", xlogger.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *AlertHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams alerts until the peer goes away.
func (h *AlertHub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("alert subscriber connected", xlogger.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

func (h *AlertHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *AlertHub) readLoop(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *AlertHub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
	h.logger.Info("alert subscriber disconnected")
}

// Close disconnects every subscriber.
func (h *AlertHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// AlertsEchoHandler serves the low-stock endpoints.
type AlertsEchoHandler struct {
	logger  *xlogger.Logger
	monitor *usecase.LowStockMonitor
	hub     *AlertHub
}

func NewAlertsEchoHandler(logger *xlogger.Logger, monitor *usecase.LowStockMonitor, hub *AlertHub) *AlertsEchoHandler {
	return &AlertsEchoHandler{logger: logger, monitor: monitor, hub: hub}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("/low-stock", h.LowStock)
	g.POST("/check", h.Check)
	e.GET("/ws/alerts", h.hub.ServeWS)
}

func (h *AlertsEchoHandler) LowStock(c echo.Context) error {
	items, err := h.monitor.LowStock(c.Request().Context())
	if err != nil {
		h.logger.Error("low stock usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
	}
	if items == nil {
		items = []models.Ingredient{}
	}
	return xhttp.SuccessResponse(c, models.LowStockResponse{Items: items})
}

// Check runs the monitor now and returns the raised alert, if any.
func (h *AlertsEchoHandler) Check(c echo.Context) error {
	alert, err := h.monitor.Check(c.Request().Context())
	if err != nil {
		h.logger.Error("low stock check error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
	}
	return xhttp.SuccessResponse(c, alert)
}
