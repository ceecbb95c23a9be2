// Package event defines the tagged events pushed from the server to
// subscribed dashboard clients.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-dashboard-hub/internal/domain/dashboard"
)

// Kind groups event names by how clients merge them.
type Kind string

const (
	KindInsight       Kind = "insight"
	KindStatus        Kind = "status"
	KindSummary       Kind = "summary"
	KindMessageStatus Kind = "message-status"
)

// Name is the wire name of an event.
type Name string

const (
	NameNewInsight       Name = "new-insight"
	NameAutomatedInsight Name = "automated-insight"
	NameConnectionStatus Name = "connection-status"
	NameWhatsAppStatus   Name = "whatsapp-status"
	NameMessageSent      Name = "message-sent"
	NameDailySummary     Name = "daily-summary"
)

var kinds = map[Name]Kind{
	NameNewInsight:       KindInsight,
	NameAutomatedInsight: KindInsight,
	NameConnectionStatus: KindStatus,
	NameWhatsAppStatus:   KindStatus,
	NameMessageSent:      KindMessageStatus,
	NameDailySummary:     KindSummary,
}

// Kind reports the kind of a known name and false otherwise.
func (n Name) Kind() (Kind, bool) {
	k, ok := kinds[n]
	return k, ok
}

var (
	ErrUnknownName  = errors.New("unknown event name")
	ErrKindMismatch = errors.New("payload kind does not match event name")
	ErrMissingID    = errors.New("event id is empty")
)

// Payload is implemented only by the payload types of this package.
type Payload interface {
	Kind() Kind
	isPayload()
}

// Event is immutable once built with New.
type Event struct {
	ID        string
	Name      Name
	Timestamp time.Time
	Payload   Payload
}

// Kind of the event, derived from its payload.
func (e Event) Kind() Kind {
	return e.Payload.Kind()
}

// New validates that payload belongs to name.
func New(id string, name Name, ts time.Time, payload Payload) (Event, error) {
	if id == "" {
		return Event{}, ErrMissingID
	}
	kind, ok := name.Kind()
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	if payload == nil || payload.Kind() != kind {
		return Event{}, fmt.Errorf("%w: %s", ErrKindMismatch, name)
	}
	return Event{ID: id, Name: name, Timestamp: ts, Payload: payload}, nil
}

// MustNew is New for payloads built in code.
func MustNew(id string, name Name, ts time.Time, payload Payload) Event {
	evt, err := New(id, name, ts, payload)
	if err != nil {
		panic(err)
	}
	return evt
}

// Decode parses a wire payload into the concrete type for name.
func Decode(id string, name Name, ts time.Time, data []byte) (Event, error) {
	var payload Payload
	switch name {
	case NameNewInsight, NameAutomatedInsight:
		var p Insight
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		payload = p
	case NameConnectionStatus:
		var p ConnectionStatus
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		payload = p
	case NameWhatsAppStatus:
		var p WhatsAppStatus
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		payload = p
	case NameMessageSent:
		var p MessageStatus
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		payload = p
	case NameDailySummary:
		var p DailySummary
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", name, err)
		}
		payload = p
	default:
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	return New(id, name, ts, payload)
}

// Insight is carried by new-insight and automated-insight.
type Insight struct {
	dashboard.Insight
}

func (Insight) Kind() Kind { return KindInsight }
func (Insight) isPayload() {}

// ConnectionStatus is sent once right after the handshake.
type ConnectionStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (ConnectionStatus) Kind() Kind { return KindStatus }
func (ConnectionStatus) isPayload() {}

// WhatsAppStatus answers a whatsapp-status-check.
type WhatsAppStatus struct {
	Connected    bool      `json:"connected"`
	LastActivity time.Time `json:"lastActivity"`
}

func (WhatsAppStatus) Kind() Kind { return KindStatus }
func (WhatsAppStatus) isPayload() {}

// MessageStatus reports the delivery state of an outbound message.
type MessageStatus struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (MessageStatus) Kind() Kind { return KindMessageStatus }
func (MessageStatus) isPayload() {}

// DailySummary replaces the client's cached metrics snapshot.
type DailySummary struct {
	Type      string            `json:"type"`
	Data      dashboard.Metrics `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
}

func (DailySummary) Kind() Kind { return KindSummary }
func (DailySummary) isPayload() {}
