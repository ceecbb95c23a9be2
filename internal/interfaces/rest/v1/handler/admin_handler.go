package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/apperror"
	"go-dashboard-hub/internal/interfaces/rest/response"
)

// HubInspector is the read side of the hub used by the admin API.
type HubInspector interface {
	IsRunning() bool
	Snapshot() hub.Snapshot
}

type BroadcastRequest struct {
	Mode    string `json:"mode"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// AdminHandler exposes hub state and lets operators push an announcement.
type AdminHandler struct {
	hub       HubInspector
	publisher dispatch.Publisher
	clock     clockwork.Clock
	logger    logger.Logger
}

func NewAdminHandler(h HubInspector, publisher dispatch.Publisher, clock clockwork.Clock, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		hub:       h,
		publisher: publisher,
		clock:     clock,
		logger:    log.WithField("handler", "admin"),
	}
}

func (h *AdminHandler) HubStatus(c *gin.Context) {
	snapshot := h.hub.Snapshot()
	h.logger.Debugf("Hub status check - Running: %v, Connections: %d", snapshot.Running, snapshot.Connections)
	response.OK(c, http.StatusOK, snapshot, nil)
}

// Broadcast publishes an admin insight to one dashboard mode, or to every
// connection when mode is empty.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation("title and message are required"))
		return
	}

	topic := hub.TopicAll
	if req.Mode != "" {
		mode, err := dashboard.ParseMode(req.Mode)
		if err != nil {
			_ = c.Error(apperror.Validation(fmt.Sprintf("Invalid mode %q", req.Mode)))
			return
		}
		topic = mode.Topic()
	}

	if !h.hub.IsRunning() {
		_ = c.Error(apperror.Unavailable("Service temporarily unavailable"))
		return
	}

	now := h.clock.Now()
	id := uuid.NewString()
	evt := event.MustNew(id, event.NameNewInsight, now, event.Insight{Insight: dashboard.Insight{
		ID:         id,
		Type:       "admin",
		Title:      req.Title,
		Message:    req.Message,
		Confidence: 100,
		Impact:     dashboard.ImpactMedium,
		Timestamp:  now,
		Actions:    []string{},
	}})

	outcome, err := h.publisher.Publish(c.Request.Context(), topic, evt)
	if err != nil {
		_ = c.Error(apperror.Internal("Failed to broadcast message", err))
		return
	}

	h.logger.Infof("Admin broadcast %s to %s: %d/%d delivered", id, topic, outcome.Delivered, outcome.Attempted)
	response.OK(c, http.StatusOK, outcome, nil)
}
