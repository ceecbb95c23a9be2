package hub

import (
	"context"
	"errors"
)

// TopicAll addresses every registered connection. It is never stored in a
// connection's topic set.
const TopicAll = "*"

var (
	ErrHubNotRunning      = errors.New("hub is not running")
	ErrHubShuttingDown    = errors.New("hub is shutting down")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionExists   = errors.New("connection already registered")
	ErrConnectionClosed   = errors.New("connection is closed")
	ErrSendBufferFull     = errors.New("send buffer full")
	ErrInvalidTopic       = errors.New("invalid topic")
)

// Connection represents any type of connection (SSE, WebSocket, etc.)
//
// Send must not block on the network: implementations enqueue and return
// ErrSendBufferFull when the client cannot keep up.
type Connection interface {
	ID() string
	Type() string
	Send(ctx context.Context, message *Message) error
	Close() error
	IsClosed() bool
	Context() context.Context
}

// Message represents a message to be sent through connections
type Message struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Data    any               `json:"data"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Observer receives registry and delivery outcomes. Calls are made from the
// hub goroutine and must return quickly.
type Observer interface {
	ConnectionOpened(connType string)
	ConnectionClosed(connType string)
	SubscriptionsChanged(total int)
	MessageDelivered(msgType string)
	MessageDropped(msgType string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened(string)  {}
func (nopObserver) ConnectionClosed(string)  {}
func (nopObserver) SubscriptionsChanged(int) {}
func (nopObserver) MessageDelivered(string)  {}
func (nopObserver) MessageDropped(string)    {}
