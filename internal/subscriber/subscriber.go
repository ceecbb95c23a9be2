// Package subscriber is the client side of the dashboard hub. It keeps a
// WebSocket subscription alive and merges pushed events into a State.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jellydator/ttlcache/v3"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	DefaultMaxInsights = 100
	DefaultMaxMessages = 100
	DefaultDedupTTL    = 24 * time.Hour

	writeTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("subscriber is not connected")

type Config struct {
	// URL of the hub's WebSocket endpoint, e.g. ws://localhost:3001/ws.
	URL    string
	Header http.Header
	Mode   dashboard.Mode

	MaxInsights int
	// MaxMessages bounds State.Messages; the oldest message ids are
	// evicted first.
	MaxMessages int
	DedupTTL    time.Duration

	Dialer *websocket.Dialer
	// NewBackOff builds the reconnect policy. It defaults to exponential
	// backoff capped at 30s that never gives up.
	NewBackOff func() backoff.BackOff
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = dashboard.DefaultMode
	}
	if c.MaxInsights <= 0 {
		c.MaxInsights = DefaultMaxInsights
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = DefaultDedupTTL
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.NewBackOff == nil {
		c.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// frame is the wire shape of hub.Message with data left undecoded.
type frame struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Data    json.RawMessage   `json:"data"`
	Headers map[string]string `json:"headers"`
}

type Subscriber struct {
	cfg    Config
	logger logger.Logger
	seen   *ttlcache.Cache[string, struct{}]

	mu       sync.Mutex
	state    State
	onChange func(State)
	// messageOrder holds the keys of state.Messages, oldest first.
	messageOrder []string

	// connMu guards conn and serializes writes to it. It is taken before mu.
	connMu sync.Mutex
	conn   *websocket.Conn
}

func New(cfg Config, log logger.Logger) (*Subscriber, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("subscriber: URL is required")
	}
	cfg.setDefaults()
	if _, err := dashboard.ParseMode(string(cfg.Mode)); err != nil {
		return nil, fmt.Errorf("subscriber: %w", err)
	}

	return &Subscriber{
		cfg:    cfg,
		logger: log.WithField("component", "subscriber"),
		seen: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](cfg.DedupTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
		state: newState(cfg.Mode),
	}, nil
}

// OnChange registers fn to be called with a snapshot after every merge.
// fn runs on the reading goroutine and must not block.
func (s *Subscriber) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Subscriber) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Run keeps a connection open until ctx ends, reconnecting with backoff and
// re-subscribing to the current mode after every drop. It must be called
// once.
func (s *Subscriber) Run(ctx context.Context) error {
	go s.seen.Start()
	defer s.seen.Stop()

	policy := backoff.WithContext(s.cfg.NewBackOff(), ctx)

	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			policy.Reset()
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("subscriber gave up: %w", err)
		}
		s.logger.Warnf("Connection lost (%v), reconnecting in %s", err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session dials once and reads until the connection drops. connected
// reports whether the dial succeeded.
func (s *Subscriber) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	// The initial subscribe is sent with connMu held so a concurrent SetMode
	// lands either before it or entirely after it.
	s.connMu.Lock()
	s.conn = conn
	err = s.writeLocked(hub.MessageTypeSubscribeDashboard, s.mode())
	s.connMu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		_ = conn.Close()
		s.markDisconnected()
	}()

	if err != nil {
		return true, err
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return true, err
		}
		s.handleFrame(f)
	}
}

// SetMode switches the dashboard subscription. While disconnected the mode
// is only recorded and used on the next connect.
func (s *Subscriber) SetMode(mode dashboard.Mode) error {
	if _, err := dashboard.ParseMode(string(mode)); err != nil {
		return err
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	previous := s.state.Mode
	s.state.Mode = mode
	s.mu.Unlock()

	if previous == mode || s.conn == nil {
		return nil
	}
	if err := s.writeLocked(hub.MessageTypeUnsubscribeDashboard, previous); err != nil {
		return err
	}
	return s.writeLocked(hub.MessageTypeSubscribeDashboard, mode)
}

func (s *Subscriber) mode() dashboard.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Mode
}

// CheckWhatsAppStatus asks the server for a whatsapp-status event.
func (s *Subscriber) CheckWhatsAppStatus() error {
	return s.write(hub.MessageTypeWhatsAppStatusCheck, nil)
}

// MarkRead marks the insight notification with id as read. It reports
// whether such a notification exists.
func (s *Subscriber) MarkRead(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.state.Insights {
		if s.state.Insights[i].ID == id {
			s.state.Insights[i].Read = true
			found = true
			break
		}
	}
	snapshot, notify := s.state.clone(), s.onChange
	s.mu.Unlock()

	if found && notify != nil {
		notify(snapshot)
	}
	return found
}

func (s *Subscriber) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UnreadCount()
}

func (s *Subscriber) write(msgType hub.MessageType, data any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.writeLocked(msgType, data)
}

func (s *Subscriber) writeLocked(msgType hub.MessageType, data any) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	out := map[string]any{"type": msgType}
	if data != nil {
		out["data"] = data
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(out); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

func (s *Subscriber) handleFrame(f frame) {
	switch hub.MessageType(f.Type) {
	case hub.MessageTypeError:
		s.logger.Warnf("Server rejected a frame: %s", string(f.Data))
		return
	case hub.MessageTypeSubscribed, hub.MessageTypeUnsubscribed:
		s.logger.Debugf("%s: %s", f.Type, string(f.Data))
		return
	}

	msg := hub.Message{Headers: f.Headers}
	ts, ok := msg.Timestamp()
	if !ok {
		ts = time.Now()
	}

	evt, err := event.Decode(f.ID, event.Name(f.Type), ts, f.Data)
	if err != nil {
		s.logger.Warnf("Ignoring frame %s (%s): %v", f.ID, f.Type, err)
		return
	}
	s.Apply(evt)
}

// Apply merges evt into the state and reports whether anything changed.
// Insight events are de-duplicated by id.
func (s *Subscriber) Apply(evt event.Event) bool {
	s.mu.Lock()
	changed := s.merge(evt)
	snapshot, notify := s.state.clone(), s.onChange
	s.mu.Unlock()

	if changed && notify != nil {
		notify(snapshot)
	}
	return changed
}

func (s *Subscriber) merge(evt event.Event) bool {
	switch p := evt.Payload.(type) {
	case event.Insight:
		if s.seen.Has(evt.ID) {
			return false
		}
		s.seen.Set(evt.ID, struct{}{}, ttlcache.DefaultTTL)

		n := dashboard.NotificationFromInsight(p.Insight)
		n.ID = evt.ID
		s.state.Insights = append([]dashboard.Notification{n}, s.state.Insights...)
		if len(s.state.Insights) > s.cfg.MaxInsights {
			s.state.Insights = s.state.Insights[:s.cfg.MaxInsights]
		}

	case event.ConnectionStatus:
		s.state.Statuses[EntityConnection] = EntityStatus{
			Status:    p.Status,
			Detail:    p.Services,
			UpdatedAt: evt.Timestamp,
		}
		s.state.Connected = true
		s.state.Stale = false

	case event.WhatsAppStatus:
		status := "disconnected"
		if p.Connected {
			status = "connected"
		}
		s.state.Statuses[EntityWhatsApp] = EntityStatus{
			Status:    status,
			Detail:    map[string]string{"lastActivity": p.LastActivity.Format(time.RFC3339Nano)},
			UpdatedAt: evt.Timestamp,
		}

	case event.MessageStatus:
		if _, exists := s.state.Messages[p.ID]; !exists {
			s.messageOrder = append(s.messageOrder, p.ID)
			for len(s.messageOrder) > s.cfg.MaxMessages {
				delete(s.state.Messages, s.messageOrder[0])
				s.messageOrder = s.messageOrder[1:]
			}
		}
		s.state.Messages[p.ID] = p

	case event.DailySummary:
		metrics := p.Data
		s.state.Metrics = &metrics
		s.state.MetricsAt = p.Timestamp

	default:
		s.logger.Warnf("Ignoring event %s with unhandled payload %T", evt.ID, evt.Payload)
		return false
	}
	return true
}

func (s *Subscriber) markDisconnected() {
	s.mu.Lock()
	wasConnected := s.state.Connected
	s.state.Connected = false
	s.state.Stale = true
	if status, ok := s.state.Statuses[EntityConnection]; ok {
		status.Status = "disconnected"
		s.state.Statuses[EntityConnection] = status
	}
	snapshot, notify := s.state.clone(), s.onChange
	s.mu.Unlock()

	if wasConnected && notify != nil {
		notify(snapshot)
	}
}
