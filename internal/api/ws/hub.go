package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to every connected observer.
type Hub struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.RWMutex
	clients  map[string]*client
	greeting func() Frame
	closed   bool
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]*client),
	}
}

// OnConnect sets the frame pushed to each new observer before anything else.
func (h *Hub) OnConnect(greeting func() Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.greeting = greeting
}

// Publish sends a frame to every observer. Observers whose buffer is full
// are disconnected rather than allowed to stall the others.
func (h *Hub) Publish(event string, data any) {
	msg, err := sonic.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- msg:
			h.recordMessage("out", event)
		default:
			h.logger.Warn("Dropping slow websocket client", zap.String("client_id", id))
			h.removeLocked(id)
		}
	}
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}

// HandleConnection upgrades the request and serves the observer until it
// disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if !h.register(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Info("Client connected", zap.String("client_id", cl.id))

	go h.writePump(cl)
	h.readPump(cl)
}

// register adds the client and queues the greeting under the same lock as
// Publish, so no update can slip in ahead of it.
func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	h.clients[cl.id] = cl
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}

	if h.greeting != nil {
		frame := h.greeting()
		if msg, err := sonic.Marshal(frame); err == nil {
			cl.send <- msg
			h.recordMessage("out", frame.Event)
		} else {
			h.logger.Error("Failed to encode greeting", zap.Error(err))
		}
	}
	return true
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	cl, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(cl.send)
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

// readPump discards incoming messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.unregister(cl.id)
		cl.conn.Close()
		h.logger.Info("Client disconnected", zap.String("client_id", cl.id))
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}
		h.recordMessage("in", "ignored")
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) recordMessage(direction, event string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, event)
	}
}
