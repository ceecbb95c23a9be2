package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	ConnectionTypeWebSocket = "websocket"

	wsWriteTimeout   = 10 * time.Second
	wsPongTimeout    = 60 * time.Second
	wsPingInterval   = 54 * time.Second // must be less than wsPongTimeout
	wsMaxMessageSize = 64 * 1024
)

// FrameHandler receives every text frame read from a WebSocket client.
type FrameHandler func(conn *WebSocketConnection, data []byte)

// WebSocketConnection implements the Connection interface for WebSocket connections
type WebSocketConnection struct {
	id   string
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	logger logger.Logger

	// send is drained by writePump, the only goroutine that writes to conn.
	send chan *Message

	lastActivity time.Time
	activityMu   sync.RWMutex

	startOnce sync.Once
}

// NewWebSocketConnection wraps an upgraded connection and starts its write
// pump. Frames are not read until Listen is called.
func NewWebSocketConnection(
	id string,
	conn *websocket.Conn,
	log logger.Logger,
	sendBuffer int,
) *WebSocketConnection {
	ctx, cancel := context.WithCancel(context.Background())

	wsConn := &WebSocketConnection{
		id:           id,
		conn:         conn,
		ctx:          ctx,
		cancel:       cancel,
		logger:       log.WithField("connection_id", id),
		send:         make(chan *Message, sendBuffer),
		lastActivity: time.Now(),
	}

	wsConn.setupWebSocket()
	go wsConn.writePump()

	return wsConn
}

// ID returns unique connection identifier
func (c *WebSocketConnection) ID() string {
	return c.id
}

// Type returns the connection type
func (c *WebSocketConnection) Type() string {
	return ConnectionTypeWebSocket
}

// Send queues message for the write pump without blocking.
func (c *WebSocketConnection) Send(_ context.Context, message *Message) error {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close gracefully closes the WebSocket connection
func (c *WebSocketConnection) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.send)
	c.cancel()

	c.logger.Info("WebSocket connection closed")
	return nil
}

// IsClosed returns true if connection is closed
func (c *WebSocketConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Context returns the connection's context (for cancellation)
func (c *WebSocketConnection) Context() context.Context {
	return c.ctx
}

// LastActivity reports when the client was last heard from or written to.
func (c *WebSocketConnection) LastActivity() time.Time {
	c.activityMu.RLock()
	defer c.activityMu.RUnlock()
	return c.lastActivity
}

// Listen starts the read pump. Each text frame is passed to handle; the
// connection closes when reading fails.
func (c *WebSocketConnection) Listen(handle FrameHandler) {
	c.startOnce.Do(func() {
		go c.readPump(handle)
	})
}

func (c *WebSocketConnection) setupWebSocket() {
	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.updateActivity()
		return c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

			if !ok {
				c.writeClose()
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Errorf("Failed to write message: %v", err)
				_ = c.Close()
				return
			}

			c.updateActivity()

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			c.writeClose()
			return
		}
	}
}

func (c *WebSocketConnection) writeClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// readPump handles reading messages from the WebSocket connection
func (c *WebSocketConnection) readPump(handle FrameHandler) {
	defer func() {
		_ = c.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Errorf("WebSocket error: %v", err)
			}
			return
		}

		c.updateActivity()

		switch messageType {
		case websocket.TextMessage:
			c.logger.Debugf("Received text message: %s", string(data))
			if handle != nil {
				handle(c, data)
			}

		case websocket.BinaryMessage:
			c.logger.Debugf("Ignoring binary message of length: %d", len(data))
		}
	}
}

// updateActivity updates the last activity timestamp
func (c *WebSocketConnection) updateActivity() {
	c.activityMu.Lock()
	c.lastActivity = time.Now()
	c.activityMu.Unlock()
}
