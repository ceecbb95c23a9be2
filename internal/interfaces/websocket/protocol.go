package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
)

// Error codes carried in error frames.
const (
	CodeInvalidFrame = "invalid_frame"
	CodeUnknownType  = "unknown_type"
	CodeInvalidMode  = "invalid_mode"
	CodeUnavailable  = "unavailable"
)

// clientFrame is what clients send. data is a bare mode string for the
// subscription frames and absent otherwise.
type clientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscriptionAck is the data of subscribed and unsubscribed frames.
type SubscriptionAck struct {
	Mode  dashboard.Mode `json:"mode"`
	Topic string         `json:"topic"`
	Left  []string       `json:"left,omitempty"`
}

// handleFrame applies one client frame. Bad frames are answered with an
// error frame and the connection stays open.
func (h *WebSocketHandler) handleFrame(conn *hub.WebSocketConnection, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
		h.reply(conn, hub.ErrorMessage(CodeInvalidFrame, "frame must be a JSON object with a type"))
		return
	}

	switch hub.MessageType(frame.Type) {
	case hub.MessageTypeSubscribeDashboard:
		h.subscribe(conn, frame.Data)
	case hub.MessageTypeUnsubscribeDashboard:
		h.unsubscribe(conn, frame.Data)
	case hub.MessageTypeWhatsAppStatusCheck:
		h.whatsAppStatus(conn)
	default:
		h.reply(conn, hub.ErrorMessage(CodeUnknownType, "unknown frame type "+frame.Type))
	}
}

func (h *WebSocketHandler) subscribe(conn *hub.WebSocketConnection, raw json.RawMessage) {
	mode, ok := h.parseMode(conn, raw)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(conn.Context(), replyTimeout)
	defer cancel()

	var (
		left []string
		err  error
	)
	if h.cfg.AutoLeavePrevious {
		left, err = h.hub.SwitchTopic(ctx, conn.ID(), dashboard.TopicPrefix, mode.Topic())
	} else {
		err = h.hub.Subscribe(ctx, conn.ID(), mode.Topic())
	}
	if err != nil {
		h.subscriptionFailed(conn, err)
		return
	}

	h.logger.Infof("Connection %s joined %s", conn.ID(), mode.Topic())
	h.reply(conn, hub.NewMessageBuilder().
		WithType(string(hub.MessageTypeSubscribed)).
		WithData(SubscriptionAck{Mode: mode, Topic: mode.Topic(), Left: left}).
		Build())
}

func (h *WebSocketHandler) unsubscribe(conn *hub.WebSocketConnection, raw json.RawMessage) {
	mode, ok := h.parseMode(conn, raw)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(conn.Context(), replyTimeout)
	defer cancel()

	if err := h.hub.Unsubscribe(ctx, conn.ID(), mode.Topic()); err != nil {
		h.subscriptionFailed(conn, err)
		return
	}

	h.logger.Infof("Connection %s left %s", conn.ID(), mode.Topic())
	h.reply(conn, hub.NewMessageBuilder().
		WithType(string(hub.MessageTypeUnsubscribed)).
		WithData(SubscriptionAck{Mode: mode, Topic: mode.Topic()}).
		Build())
}

func (h *WebSocketHandler) whatsAppStatus(conn *hub.WebSocketConnection) {
	account := h.whatsapp.WhatsAppStatus()
	evt := event.MustNew(uuid.NewString(), event.NameWhatsAppStatus, h.clock.Now(), event.WhatsAppStatus{
		Connected:    account.Connected,
		LastActivity: account.LastActivity,
	})
	h.reply(conn, dispatch.ToMessage(evt))
}

func (h *WebSocketHandler) parseMode(conn *hub.WebSocketConnection, raw json.RawMessage) (dashboard.Mode, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		h.reply(conn, hub.ErrorMessage(CodeInvalidMode, "data must be a dashboard mode"))
		return "", false
	}
	mode, err := dashboard.ParseMode(name)
	if err != nil {
		h.reply(conn, hub.ErrorMessage(CodeInvalidMode, err.Error()))
		return "", false
	}
	return mode, true
}

func (h *WebSocketHandler) subscriptionFailed(conn *hub.WebSocketConnection, err error) {
	h.logger.Warnf("Subscription change for %s failed: %v", conn.ID(), err)
	if errors.Is(err, hub.ErrHubNotRunning) || errors.Is(err, hub.ErrHubShuttingDown) {
		h.reply(conn, hub.ErrorMessage(CodeUnavailable, "service temporarily unavailable"))
		return
	}
	h.reply(conn, hub.ErrorMessage(CodeInvalidFrame, err.Error()))
}
