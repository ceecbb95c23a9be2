// Package relay fans hub broadcasts out across server instances. Every
// instance publishes to one shared channel and re-broadcasts what it
// receives to its own hub, so delivery stays at-most-once per connection.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Second

	maxResubscribeBackoff = 30 * time.Second
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

var (
	ErrRelayClosed   = errors.New("relay subscription closed")
	ErrNotSubscribed = errors.New("relay is not subscribed")
)

// Transport is the pub/sub primitive the relay is built on.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Broadcaster is the local side a relay delivers into.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, message *hub.Message) (hub.DeliveryReport, error)
}

// Envelope is the payload carried on the shared channel.
type Envelope struct {
	Origin  string       `json:"origin"`
	Topic   string       `json:"topic"`
	Message *hub.Message `json:"message"`
}

type Relay struct {
	transport Transport
	channel   string
	origin    string
	logger    logger.Logger
	connected atomic.Bool

	// started is set by Run. From then on Publish refuses to send while the
	// subscription is down, since this instance would miss its own message.
	started    atomic.Bool
	subscribed atomic.Bool
}

func New(transport Transport, channel string, log logger.Logger) *Relay {
	r := &Relay{
		transport: transport,
		channel:   channel,
		origin:    uuid.NewString(),
		logger:    log.WithField("component", "relay"),
	}
	r.connected.Store(true)
	return r
}

// Origin identifies this instance in published envelopes.
func (r *Relay) Origin() string {
	return r.origin
}

// Status reports whether the last Redis interaction succeeded.
func (r *Relay) Status() string {
	if r.connected.Load() {
		return StatusConnected
	}
	return StatusDisconnected
}

// Subscribed reports whether Run currently holds a subscription.
func (r *Relay) Subscribed() bool {
	return r.subscribed.Load()
}

// Publish sends message for topic to every instance, retrying with bounded
// exponential backoff.
func (r *Relay) Publish(ctx context.Context, topic string, message *hub.Message) error {
	if r.started.Load() && !r.subscribed.Load() {
		return ErrNotSubscribed
	}

	payload, err := json.Marshal(Envelope{Origin: r.origin, Topic: topic, Message: message})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	operation := func() error {
		return r.transport.Publish(ctx, r.channel, payload)
	}

	backoffStrategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(initialBackoff),
				backoff.WithMaxInterval(maxBackoff),
			),
			maxRetries,
		),
		ctx,
	)

	err = backoff.RetryNotify(operation, backoffStrategy, func(err error, d time.Duration) {
		r.logger.Warnf("Retrying relay publish of %s: %v (next attempt in %s)", message.ID, err, d)
	})
	r.connected.Store(err == nil)
	if err != nil {
		return fmt.Errorf("relay publish failed: %w", err)
	}
	return nil
}

// Run subscribes to the shared channel and broadcasts every envelope into
// target until ctx ends. A lost subscription is re-established with
// backoff.
func (r *Relay) Run(ctx context.Context, target Broadcaster) error {
	r.started.Store(true)

	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(initialBackoff),
			backoff.WithMaxInterval(maxResubscribeBackoff),
			backoff.WithMaxElapsedTime(0),
		),
		ctx,
	)

	for {
		err := r.subscribe(ctx, target, policy.Reset)
		r.subscribed.Store(false)
		if ctx.Err() != nil {
			return nil
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		r.logger.Warnf("Relay subscription lost: %v (resubscribing in %s)", err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *Relay) subscribe(ctx context.Context, target Broadcaster, onSubscribed func()) error {
	payloads, err := r.transport.Subscribe(ctx, r.channel)
	if err != nil {
		r.connected.Store(false)
		return err
	}
	r.connected.Store(true)
	r.subscribed.Store(true)
	onSubscribed()
	r.logger.Infof("Relay subscribed to %s", r.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-payloads:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				r.connected.Store(false)
				return ErrRelayClosed
			}
			r.deliver(ctx, target, payload)
		}
	}
}

func (r *Relay) deliver(ctx context.Context, target Broadcaster, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.Warnf("Relay envelope decode error: %v", err)
		return
	}
	if env.Message == nil || env.Topic == "" {
		r.logger.Warn("Relay envelope without message or topic")
		return
	}

	report, err := target.Broadcast(ctx, env.Topic, env.Message)
	if err != nil {
		r.logger.Warnf("Relay broadcast of %s failed: %v", env.Message.ID, err)
		return
	}
	r.logger.Debugf("Relayed %s from %s to %s: %d delivered", env.Message.ID, env.Origin, env.Topic, report.Delivered)
}

func (r *Relay) Close() error {
	return r.transport.Close()
}
