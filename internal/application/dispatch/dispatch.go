// Package dispatch turns domain events into hub frames and routes them to
// connected clients.
package dispatch

import (
	"context"

	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

// Broadcaster is the local hub.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, message *hub.Message) (hub.DeliveryReport, error)
}

// Relay fans a frame out to every server instance, this one included.
type Relay interface {
	Publish(ctx context.Context, topic string, message *hub.Message) error
}

// Publisher hands events to the broadcast layer.
type Publisher interface {
	Publish(ctx context.Context, topic string, evt event.Event) (Outcome, error)
}

// Outcome of one publish. When Relayed is true delivery happens
// asynchronously on every instance and the report only names the message.
type Outcome struct {
	hub.DeliveryReport
	Relayed bool `json:"relayed"`
}

type Dispatcher struct {
	hub    Broadcaster
	relay  Relay
	logger logger.Logger
}

var _ Publisher = (*Dispatcher)(nil)

// New returns a dispatcher that delivers straight to the local hub. relay may
// be nil.
func New(h Broadcaster, relay Relay, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		hub:    h,
		relay:  relay,
		logger: log.WithField("component", "dispatch"),
	}
}

// Publish sends evt to topic. A relay failure falls back to local delivery.
func (d *Dispatcher) Publish(ctx context.Context, topic string, evt event.Event) (Outcome, error) {
	msg := ToMessage(evt)

	if d.relay != nil {
		err := d.relay.Publish(ctx, topic, msg)
		if err == nil {
			return Outcome{
				DeliveryReport: hub.DeliveryReport{Topic: topic, MessageID: msg.ID},
				Relayed:        true,
			}, nil
		}
		d.logger.Warnf("Relay unavailable for %s, delivering locally: %v", evt.ID, err)
	}

	report, err := d.hub.Broadcast(ctx, topic, msg)
	if err != nil {
		return Outcome{}, err
	}
	d.logger.Debugf("Published %s (%s) to %s: %d/%d delivered",
		evt.ID, evt.Name, topic, report.Delivered, report.Attempted)
	return Outcome{DeliveryReport: report}, nil
}

// ToMessage builds the wire frame for evt.
func ToMessage(evt event.Event) *hub.Message {
	return hub.NewMessageBuilder().
		WithID(evt.ID).
		WithType(string(evt.Name)).
		WithData(evt.Payload).
		WithKind(string(evt.Kind())).
		WithTimestampAt(evt.Timestamp).
		Build()
}
