package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"

	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	ConnectionTypeSSE = "sse"

	sseKeepAliveInterval = 30 * time.Second
)

// SSEConnection implements the Connection interface for Server-Sent Events.
// Messages are queued by Send and written by Serve, which runs in the HTTP
// handler goroutine that owns the response writer.
type SSEConnection struct {
	id string

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	logger logger.Logger

	send chan *Message
}

// NewSSEConnection creates a new SSE connection bound to the request context.
func NewSSEConnection(ctx context.Context, id string, log logger.Logger, sendBuffer int) *SSEConnection {
	rctx, cancel := context.WithCancel(ctx)

	return &SSEConnection{
		id:     id,
		ctx:    rctx,
		cancel: cancel,
		logger: log.WithField("connection_id", id),
		send:   make(chan *Message, sendBuffer),
	}
}

// ID returns unique connection identifier
func (c *SSEConnection) ID() string {
	return c.id
}

// Type returns the connection type
func (c *SSEConnection) Type() string {
	return ConnectionTypeSSE
}

// Send queues message for Serve without blocking.
func (c *SSEConnection) Send(_ context.Context, message *Message) error {
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

// Close gracefully closes the connection
func (c *SSEConnection) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()

	c.logger.Info("SSE connection closed")
	return nil
}

// IsClosed returns true if connection is closed
func (c *SSEConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Context returns the connection's context (for cancellation)
func (c *SSEConnection) Context() context.Context {
	return c.ctx
}

// SetupHeaders sets up the proper headers for an SSE response.
func SetupHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For nginx
}

// Serve writes queued messages to w until the connection is closed or a
// write fails. Each message is one SSE event whose data is the JSON frame.
func (c *SSEConnection) Serve(w http.ResponseWriter) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = c.Close()
		return fmt.Errorf("response writer does not support flushing")
	}

	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			if err := sse.Encode(w, sse.Event{Id: message.ID, Event: message.Type, Data: message}); err != nil {
				c.logger.Errorf("Failed to write message: %v", err)
				_ = c.Close()
				return err
			}
			flusher.Flush()

		case now := <-ticker.C:
			keepAlive := sse.Event{
				Event: "keepalive",
				Data:  map[string]string{"timestamp": now.UTC().Format(time.RFC3339Nano)},
			}
			if err := sse.Encode(w, keepAlive); err != nil {
				c.logger.Errorf("Failed to send keep-alive: %v", err)
				_ = c.Close()
				return err
			}
			flusher.Flush()

		case <-c.ctx.Done():
			_ = c.Close()
			return nil
		}
	}
}
