package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType defines the frame types the hub itself emits or accepts.
// Event frames use the event name as their type.
type MessageType string

const (
	MessageTypeError                MessageType = "error"
	MessageTypeSubscribeDashboard   MessageType = "subscribe-dashboard"
	MessageTypeUnsubscribeDashboard MessageType = "unsubscribe-dashboard"
	MessageTypeWhatsAppStatusCheck  MessageType = "whatsapp-status-check"
	MessageTypeSubscribed           MessageType = "subscribed"
	MessageTypeUnsubscribed         MessageType = "unsubscribed"
)

const (
	HeaderKind      = "kind"
	HeaderTimestamp = "timestamp"
	HeaderPriority  = "priority"
)

// MessagePriority defines message priority levels
type MessagePriority string

const (
	PriorityLow      MessagePriority = "low"
	PriorityNormal   MessagePriority = "normal"
	PriorityHigh     MessagePriority = "high"
	PriorityCritical MessagePriority = "critical"
)

// MessageBuilder helps build messages with fluent interface
type MessageBuilder struct {
	message *Message
}

// NewMessageBuilder creates a new message builder
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Headers: make(map[string]string),
		},
	}
}

func (mb *MessageBuilder) WithID(id string) *MessageBuilder {
	mb.message.ID = id
	return mb
}

func (mb *MessageBuilder) WithType(msgType string) *MessageBuilder {
	mb.message.Type = msgType
	return mb
}

func (mb *MessageBuilder) WithData(data any) *MessageBuilder {
	mb.message.Data = data
	return mb
}

// WithHeader adds a header to the message
func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	if mb.message.Headers == nil {
		mb.message.Headers = make(map[string]string)
	}
	mb.message.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithKind(kind string) *MessageBuilder {
	return mb.WithHeader(HeaderKind, kind)
}

func (mb *MessageBuilder) WithPriority(priority MessagePriority) *MessageBuilder {
	return mb.WithHeader(HeaderPriority, string(priority))
}

// WithTimestampAt stamps the message with t in RFC3339Nano.
func (mb *MessageBuilder) WithTimestampAt(t time.Time) *MessageBuilder {
	return mb.WithHeader(HeaderTimestamp, t.UTC().Format(time.RFC3339Nano))
}

// Build returns the constructed message, filling in a UUID and the current
// time when they are missing.
func (mb *MessageBuilder) Build() *Message {
	if mb.message.ID == "" {
		mb.message.ID = uuid.NewString()
	}
	if _, exists := mb.message.Headers[HeaderTimestamp]; !exists {
		mb.WithTimestampAt(time.Now())
	}
	return mb.message
}

// ErrorMessage creates the frame sent back for rejected client frames.
func ErrorMessage(code, message string) *Message {
	return NewMessageBuilder().
		WithType(string(MessageTypeError)).
		WithData(map[string]string{
			"code":    code,
			"message": message,
		}).
		WithPriority(PriorityHigh).
		Build()
}

// Timestamp parses the timestamp header. ok is false when it is absent or
// malformed.
func (m *Message) Timestamp() (t time.Time, ok bool) {
	raw, exists := m.Headers[HeaderTimestamp]
	if !exists {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MessageValidator validates messages before sending
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// Validate validates a message
func (mv *MessageValidator) Validate(message *Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if message.ID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	if message.Type == "" {
		return fmt.Errorf("message type cannot be empty")
	}

	// Validate data can be JSON marshaled
	if message.Data != nil {
		if _, err := json.Marshal(message.Data); err != nil {
			return fmt.Errorf("message data must be JSON serializable: %w", err)
		}
	}

	return nil
}
