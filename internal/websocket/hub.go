package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nadasuara/server/domain/entities"
	"github.com/nadasuara/server/domain/repositories"
	"github.com/nadasuara/server/internal/metrics"
	"github.com/nadasuara/server/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Devices connect from firmware, not browsers; origin is not
		// meaningful here.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients and owns the shared
// dependencies every connection needs.
type Hub struct {
	// Registered clients, keyed by connection ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	registry   *session.Registry
	recognizer repositories.Recognizer
	archive    repositories.TranscriptArchive
	sessionCfg session.Config

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. archive may be nil, in which case
// finished transcripts are discarded.
func NewHub(
	registry *session.Registry,
	recognizer repositories.Recognizer,
	archive repositories.TranscriptArchive,
	sessionCfg session.Config,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
		recognizer: recognizer,
		archive:    archive,
		sessionCfg: sessionCfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.connID] = client
			h.mu.Unlock()
			metrics.ActiveSessions.Inc()
			h.logger.Info("Client registered",
				zap.String("connID", client.connID),
				zap.String("deviceID", client.deviceID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.connID]; ok {
				delete(h.clients, client.connID)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.ActiveSessions.Dec()
			h.logger.Info("Client unregistered",
				zap.String("connID", client.connID),
				zap.String("deviceID", client.deviceID))
		}
	}
}

// ActiveConnections returns the connection IDs of all registered clients.
func (h *Hub) ActiveConnections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// archiveTranscript persists a finished transcript off the session path.
func (h *Hub) archiveTranscript(transcript *entities.Transcript) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.archive.Save(ctx, transcript); err != nil {
		h.logger.Error("Failed to archive transcript",
			zap.String("sessionID", transcript.SessionID),
			zap.String("deviceID", transcript.DeviceID),
			zap.Error(err))
		return
	}
	h.logger.Info("Transcript archived",
		zap.String("sessionID", transcript.SessionID),
		zap.Int("segments", len(transcript.Segments)))
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and its session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Connection ID, also the session ID for this connection's lifetime.
	connID string

	// Device ID for this client
	deviceID string

	// The streaming session owned by this connection.
	sess *session.Session

	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from a pre-authenticated
// device. One session is created per connection and lives exactly as
// long as it.
func HandleWebSocket(hub *Hub, c echo.Context, deviceID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		connID:   uuid.New().String(),
		deviceID: deviceID,
		logger:   logger,
	}

	sess, err := hub.registry.Create(client.connID, deviceID, hub.sessionCfg, hub.recognizer, session.EmitterFunc(client.emitEvent), logger)
	if err != nil {
		logger.Error("Failed to create session", zap.Error(err))
		conn.Close()
		return err
	}
	sess.SetOnEnded(hub.archiveTranscript)
	client.sess = sess

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	client.emitEvent(session.ControlEvent{
		Type:      session.EventConnected,
		SessionID: client.connID,
		Message:   "connected to transcription service",
		Mode:      "streaming",
	})

	return nil
}

// emitEvent serializes one protocol event onto the outbound channel. The
// session calls this with its lock held, so it must never block: if the
// writer has fallen behind the event is dropped and logged.
func (c *Client) emitEvent(event interface{}) {
	switch ev := event.(type) {
	case session.ErrorEvent:
		metrics.SessionErrorsTotal.WithLabelValues(ev.Code).Inc()
	case session.TranscriptEvent:
		if ev.IsFinal {
			metrics.RecognitionPassesTotal.WithLabelValues("final").Inc()
		} else {
			metrics.RecognitionPassesTotal.WithLabelValues("partial").Inc()
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Outbound channel full, dropping event",
			zap.String("connID", c.connID))
	}
}

// readPump pumps messages from the websocket connection into the session.
func (c *Client) readPump() {
	defer func() {
		c.sess.Close()
		c.hub.registry.Remove(c.connID)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processCommand(message)
		case websocket.BinaryMessage:
			metrics.AudioChunksTotal.Inc()
			metrics.AudioBytesTotal.Add(float64(len(message)))
			c.sess.HandleAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processCommand dispatches one text frame from the device.
func (c *Client) processCommand(data []byte) {
	cmd, err := ParseCommand(data)
	if err != nil {
		c.logger.Warn("Rejected command frame",
			zap.String("connID", c.connID),
			zap.Error(err))
		c.emitEvent(session.ErrorEvent{
			Type:      session.EventError,
			SessionID: c.connID,
			Code:      session.CodeProtocol,
			Message:   err.Error(),
		})
		return
	}

	switch cmd.Command {
	case CommandStart:
		c.sess.Start(cmd.Language, cmd.Encoding)
	case CommandStop:
		c.sess.Stop()
	case CommandPing:
		c.emitEvent(session.ControlEvent{
			Type:      session.EventPong,
			SessionID: c.connID,
		})
	}
}
