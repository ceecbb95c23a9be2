package hub

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	defaultCommandBuffer = 256
	sweepInterval        = 30 * time.Second
)

// DeliveryReport describes one broadcast. Dropped deliveries are not retried.
type DeliveryReport struct {
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
	Attempted int    `json:"attempted"`
	Delivered int    `json:"delivered"`
	Dropped   int    `json:"dropped"`
}

// ConnectionInfo is a read-only view of a registered connection.
type ConnectionInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Topics    []string  `json:"topics"`
	Closed    bool      `json:"closed"`
}

type member struct {
	conn      Connection
	createdAt time.Time
	topics    map[string]struct{}
}

type Option func(*Hub)

// WithObserver reports registry and delivery outcomes to o.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithCommandBuffer sets the capacity of the hub's command queue.
func WithCommandBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.commandBuffer = n
		}
	}
}

// Hub owns the connection registry and fans messages out to topics.
//
// All mutations and broadcasts are applied by a single goroutine in the
// order they were submitted. Reads take the registry lock directly.
type Hub struct {
	members       map[string]*member
	topics        map[string]map[string]struct{}
	subscriptions int
	registryMu    sync.RWMutex

	running   bool
	runningMu sync.RWMutex

	logger        logger.Logger
	observer      Observer
	validator     *MessageValidator
	commandBuffer int

	commands chan command
	done     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Hub instance
func New(log logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		members:       make(map[string]*member),
		topics:        make(map[string]map[string]struct{}),
		logger:        log.WithField("component", "hub"),
		observer:      nopObserver{},
		validator:     NewMessageValidator(),
		commandBuffer: defaultCommandBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start starts the hub and begins processing commands
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return fmt.Errorf("hub is already running")
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.commands = make(chan command, h.commandBuffer)
	h.done = make(chan struct{})
	h.running = true

	go h.run(h.ctx, h.commands, h.done)

	h.logger.Info("Hub started successfully")
	return nil
}

// Stop halts the command loop and closes every connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.cancel()
	done := h.done
	h.runningMu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for hub loop: %w", ctx.Err())
	}

	h.registryMu.Lock()
	for id, m := range h.members {
		if err := m.conn.Close(); err != nil {
			h.logger.Errorf("Failed to close connection %s: %v", id, err)
		}
		h.observer.ConnectionClosed(m.conn.Type())
	}
	h.members = make(map[string]*member)
	h.topics = make(map[string]map[string]struct{})
	h.subscriptions = 0
	h.registryMu.Unlock()
	h.observer.SubscriptionsChanged(0)

	h.logger.Info("Hub stopped successfully")
	return nil
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// RegisterConnection adds conn with an empty topic set. The connection is
// unregistered automatically when its context ends.
func (h *Hub) RegisterConnection(conn Connection) error {
	reply := make(chan error, 1)
	stopped, err := h.submit(context.Background(), registerCmd{conn: conn, reply: reply})
	if err != nil {
		return err
	}
	return h.await(context.Background(), stopped, reply)
}

// UnregisterConnection removes the connection and all of its memberships.
// reason is only logged.
func (h *Hub) UnregisterConnection(connID, reason string) error {
	_, err := h.submit(context.Background(), unregisterCmd{connID: connID, reason: reason})
	return err
}

// Subscribe adds topic to the connection's topic set. Subscribing twice is
// a no-op.
func (h *Hub) Subscribe(ctx context.Context, connID, topic string) error {
	_, err := h.subscribe(ctx, connID, topic, "")
	return err
}

// SwitchTopic subscribes to topic and leaves every other topic of the
// connection that starts with prefix. It returns the topics left.
func (h *Hub) SwitchTopic(ctx context.Context, connID, prefix, topic string) ([]string, error) {
	if !strings.HasPrefix(topic, prefix) {
		return nil, fmt.Errorf("%w: %q does not start with %q", ErrInvalidTopic, topic, prefix)
	}
	return h.subscribe(ctx, connID, topic, prefix)
}

func (h *Hub) subscribe(ctx context.Context, connID, topic, leavePrefix string) ([]string, error) {
	if err := validateTopic(topic); err != nil {
		return nil, err
	}
	reply := make(chan subscribeResult, 1)
	cmd := subscribeCmd{connID: connID, topic: topic, leavePrefix: leavePrefix, reply: reply}
	stopped, err := h.submit(ctx, cmd)
	if err != nil {
		return nil, err
	}
	res, err := awaitReply(ctx, stopped, reply)
	if err != nil {
		return nil, err
	}
	return res.left, res.err
}

// Unsubscribe removes topic from the connection's topic set.
func (h *Hub) Unsubscribe(ctx context.Context, connID, topic string) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	reply := make(chan error, 1)
	stopped, err := h.submit(ctx, unsubscribeCmd{connID: connID, topic: topic, reply: reply})
	if err != nil {
		return err
	}
	return h.await(ctx, stopped, reply)
}

// Broadcast delivers message to every connection subscribed to topic at the
// moment the hub processes it, or to every connection for TopicAll.
func (h *Hub) Broadcast(ctx context.Context, topic string, message *Message) (DeliveryReport, error) {
	if topic == "" {
		return DeliveryReport{}, ErrInvalidTopic
	}
	if err := h.validator.Validate(message); err != nil {
		return DeliveryReport{}, err
	}
	reply := make(chan broadcastResult, 1)
	stopped, err := h.submit(ctx, broadcastCmd{topic: topic, message: message, reply: reply})
	if err != nil {
		return DeliveryReport{}, err
	}
	res, err := awaitReply(ctx, stopped, reply)
	if err != nil {
		return DeliveryReport{}, err
	}
	return res.report, res.err
}

// SendToConnection sends a message to a specific connection
func (h *Hub) SendToConnection(ctx context.Context, connID string, message *Message) error {
	conn, exists := h.GetConnection(connID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}

	if err := conn.Send(ctx, message); err != nil {
		h.observer.MessageDropped(message.Type)
		return err
	}
	h.observer.MessageDelivered(message.Type)
	return nil
}

// GetConnection returns a connection by ID
func (h *Hub) GetConnection(connID string) (Connection, bool) {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	m, exists := h.members[connID]
	if !exists {
		return nil, false
	}
	return m.conn, true
}

// GetConnections returns all active connections
func (h *Hub) GetConnections() []Connection {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	connections := make([]Connection, 0, len(h.members))
	for _, m := range h.members {
		connections = append(connections, m.conn)
	}
	return connections
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()
	return len(h.members)
}

// Subscribers lists the ids subscribed to topic, sorted.
func (h *Hub) Subscribers(topic string) []string {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	ids := make([]string, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Topics lists the topics a connection has joined, sorted.
func (h *Hub) Topics(connID string) ([]string, bool) {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	m, ok := h.members[connID]
	if !ok {
		return nil, false
	}
	return sortedTopics(m), true
}

// ConnectionInfos describes registered connections, optionally filtered by
// transport type.
func (h *Hub) ConnectionInfos(connType string) []ConnectionInfo {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(h.members))
	for id, m := range h.members {
		if connType != "" && m.conn.Type() != connType {
			continue
		}
		infos = append(infos, ConnectionInfo{
			ID:        id,
			Type:      m.conn.Type(),
			CreatedAt: m.createdAt,
			Topics:    sortedTopics(m),
			Closed:    m.conn.IsClosed(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Snapshot summarizes the registry for the admin API.
type Snapshot struct {
	Running       bool           `json:"running"`
	Connections   int            `json:"connections"`
	ByType        map[string]int `json:"by_type"`
	Topics        map[string]int `json:"topics"`
	Subscriptions int            `json:"subscriptions"`
}

func (h *Hub) Snapshot() Snapshot {
	s := Snapshot{
		Running: h.IsRunning(),
		ByType:  make(map[string]int),
		Topics:  make(map[string]int),
	}

	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	s.Connections = len(h.members)
	s.Subscriptions = h.subscriptions
	for _, m := range h.members {
		s.ByType[m.conn.Type()]++
	}
	for topic, subs := range h.topics {
		s.Topics[topic] = len(subs)
	}
	return s
}

// submit queues cmd for the run loop. The returned channel closes when the
// loop is shutting down; a reply may never arrive after that.
func (h *Hub) submit(ctx context.Context, cmd command) (<-chan struct{}, error) {
	h.runningMu.RLock()
	if !h.running {
		h.runningMu.RUnlock()
		return nil, ErrHubNotRunning
	}
	commands, hubCtx := h.commands, h.ctx
	h.runningMu.RUnlock()

	select {
	case commands <- cmd:
		return hubCtx.Done(), nil
	case <-hubCtx.Done():
		return nil, ErrHubShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) await(ctx context.Context, stopped <-chan struct{}, reply <-chan error) error {
	err, waitErr := awaitReply(ctx, stopped, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// awaitReply waits for the run loop to answer. A reply that is already
// available wins over shutdown.
func awaitReply[T any](ctx context.Context, stopped <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-stopped:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubShuttingDown
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// run is the main hub loop that processes commands
func (h *Hub) run(ctx context.Context, commands <-chan command, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-commands:
			h.apply(cmd)

		case <-ticker.C:
			h.sweepClosedConnections()

		case <-ctx.Done():
			h.rejectPending(commands)
			h.logger.Info("Hub run loop stopped")
			return
		}
	}
}

// rejectPending answers every command still queued at shutdown.
func (h *Hub) rejectPending(commands <-chan command) {
	for {
		select {
		case cmd := <-commands:
			switch c := cmd.(type) {
			case registerCmd:
				c.reply <- ErrHubShuttingDown
			case subscribeCmd:
				c.reply <- subscribeResult{err: ErrHubShuttingDown}
			case unsubscribeCmd:
				c.reply <- ErrHubShuttingDown
			case broadcastCmd:
				c.reply <- broadcastResult{err: ErrHubShuttingDown}
			}
		default:
			return
		}
	}
}

func (h *Hub) apply(cmd command) {
	switch c := cmd.(type) {
	case registerCmd:
		c.reply <- h.handleRegister(c.conn)
	case unregisterCmd:
		h.handleUnregister(c.connID, c.reason)
	case subscribeCmd:
		left, err := h.handleSubscribe(c.connID, c.topic, c.leavePrefix)
		c.reply <- subscribeResult{left: left, err: err}
	case unsubscribeCmd:
		c.reply <- h.handleUnsubscribe(c.connID, c.topic)
	case broadcastCmd:
		c.reply <- broadcastResult{report: h.handleBroadcast(c.topic, c.message)}
	default:
		h.logger.Warnf("Hub received unknown command type %T", cmd)
	}
}

func (h *Hub) handleRegister(conn Connection) error {
	h.registryMu.Lock()
	if _, exists := h.members[conn.ID()]; exists {
		h.registryMu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionExists, conn.ID())
	}
	h.members[conn.ID()] = &member{
		conn:      conn,
		createdAt: time.Now(),
		topics:    make(map[string]struct{}),
	}
	h.registryMu.Unlock()

	h.observer.ConnectionOpened(conn.Type())
	h.logger.Infof("Connection %s registered (type: %s)", conn.ID(), conn.Type())

	// Monitor connection context for disconnection
	hubCtx := h.ctx
	go func() {
		select {
		case <-conn.Context().Done():
			_ = h.UnregisterConnection(conn.ID(), "connection closed")
		case <-hubCtx.Done():
		}
	}()
	return nil
}

func (h *Hub) handleUnregister(connID, reason string) {
	h.registryMu.Lock()
	m, exists := h.members[connID]
	if exists {
		for topic := range m.topics {
			h.removeMembership(m, connID, topic)
		}
		delete(h.members, connID)
	}
	total := h.subscriptions
	h.registryMu.Unlock()

	if !exists {
		return
	}

	if err := m.conn.Close(); err != nil {
		h.logger.Warnf("Failed to close connection %s: %v", connID, err)
	}
	h.observer.ConnectionClosed(m.conn.Type())
	h.observer.SubscriptionsChanged(total)
	h.logger.Infof("Connection %s unregistered: %s", connID, reason)
}

func (h *Hub) handleSubscribe(connID, topic, leavePrefix string) ([]string, error) {
	h.registryMu.Lock()
	m, exists := h.members[connID]
	if !exists {
		h.registryMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}

	var left []string
	if leavePrefix != "" {
		for joined := range m.topics {
			if joined != topic && strings.HasPrefix(joined, leavePrefix) {
				h.removeMembership(m, connID, joined)
				left = append(left, joined)
			}
		}
	}

	added := false
	if _, ok := m.topics[topic]; !ok {
		m.topics[topic] = struct{}{}
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[string]struct{})
			h.topics[topic] = subs
		}
		subs[connID] = struct{}{}
		h.subscriptions++
		added = true
	}
	total := h.subscriptions
	h.registryMu.Unlock()

	sort.Strings(left)
	if added || len(left) > 0 {
		h.observer.SubscriptionsChanged(total)
		h.logger.Infof("Connection %s subscribed to %s (left: %v)", connID, topic, left)
	}
	return left, nil
}

func (h *Hub) handleUnsubscribe(connID, topic string) error {
	h.registryMu.Lock()
	m, exists := h.members[connID]
	if !exists {
		h.registryMu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	_, joined := m.topics[topic]
	if joined {
		h.removeMembership(m, connID, topic)
	}
	total := h.subscriptions
	h.registryMu.Unlock()

	if joined {
		h.observer.SubscriptionsChanged(total)
		h.logger.Infof("Connection %s unsubscribed from %s", connID, topic)
	}
	return nil
}

// removeMembership must be called with registryMu held.
func (h *Hub) removeMembership(m *member, connID, topic string) {
	delete(m.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	h.subscriptions--
}

func (h *Hub) handleBroadcast(topic string, message *Message) DeliveryReport {
	report := DeliveryReport{Topic: topic, MessageID: message.ID}

	// Only this goroutine mutates the registry, so the target set cannot
	// change while it is collected.
	h.registryMu.RLock()
	var targets []Connection
	if topic == TopicAll {
		targets = make([]Connection, 0, len(h.members))
		for _, m := range h.members {
			targets = append(targets, m.conn)
		}
	} else {
		targets = make([]Connection, 0, len(h.topics[topic]))
		for id := range h.topics[topic] {
			targets = append(targets, h.members[id].conn)
		}
	}
	h.registryMu.RUnlock()

	for _, conn := range targets {
		report.Attempted++
		if err := conn.Send(context.Background(), message); err != nil {
			report.Dropped++
			h.observer.MessageDropped(message.Type)
			h.logger.Debugf("Dropped message %s for connection %s: %v", message.ID, conn.ID(), err)
			continue
		}
		report.Delivered++
		h.observer.MessageDelivered(message.Type)
	}

	h.logger.Debugf(
		"Broadcasted message %s (%s) to %s: %d delivered, %d dropped",
		message.ID, message.Type, topic, report.Delivered, report.Dropped,
	)
	return report
}

// sweepClosedConnections removes connections that have been closed without
// their context ending.
func (h *Hub) sweepClosedConnections() {
	h.registryMu.RLock()
	var closed []string
	for id, m := range h.members {
		if m.conn.IsClosed() {
			closed = append(closed, id)
		}
	}
	h.registryMu.RUnlock()

	for _, id := range closed {
		h.handleUnregister(id, "swept closed connection")
	}
}

func validateTopic(topic string) error {
	if topic == "" || topic == TopicAll {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return nil
}

func sortedTopics(m *member) []string {
	topics := make([]string, 0, len(m.topics))
	for t := range m.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

type command interface{ hubCommand() }

type registerCmd struct {
	conn  Connection
	reply chan error
}

type unregisterCmd struct {
	connID string
	reason string
}

type subscribeCmd struct {
	connID      string
	topic       string
	leavePrefix string
	reply       chan subscribeResult
}

type subscribeResult struct {
	left []string
	err  error
}

type unsubscribeCmd struct {
	connID string
	topic  string
	reply  chan error
}

type broadcastCmd struct {
	topic   string
	message *Message
	reply   chan broadcastResult
}

type broadcastResult struct {
	report DeliveryReport
	err    error
}

func (registerCmd) hubCommand()    {}
func (unregisterCmd) hubCommand()  {}
func (subscribeCmd) hubCommand()   {}
func (unsubscribeCmd) hubCommand() {}
func (broadcastCmd) hubCommand()   {}
