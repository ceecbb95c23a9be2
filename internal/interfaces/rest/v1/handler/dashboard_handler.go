package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/apperror"
	"go-dashboard-hub/internal/interfaces/rest/response"
	"go-dashboard-hub/internal/port/inbound"
)

const (
	defaultInsightLimit = 10
	defaultPeriod       = "12m"
	defaultCurrency     = "INR"
)

// DashboardHandler serves the business data read by the dashboard UI.
type DashboardHandler struct {
	dashboard inbound.DashboardUseCase
	clock     clockwork.Clock
	logger    logger.Logger
}

func NewDashboardHandler(uc inbound.DashboardUseCase, clock clockwork.Clock, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: uc,
		clock:     clock,
		logger:    log.WithField("handler", "dashboard"),
	}
}

func (h *DashboardHandler) Metrics(c *gin.Context) {
	raw := c.DefaultQuery("mode", string(dashboard.DefaultMode))
	mode, err := dashboard.ParseMode(raw)
	if err != nil {
		_ = c.Error(apperror.Validation(fmt.Sprintf("Invalid mode %q", raw)))
		return
	}

	h.logger.Infof("Dashboard metrics requested for mode: %s", mode)
	response.OK(c, http.StatusOK, h.dashboard.Metrics(), gin.H{
		"mode":      mode,
		"timestamp": h.clock.Now(),
		"currency":  defaultCurrency,
		"company":   h.dashboard.Company(),
	})
}

func (h *DashboardHandler) Insights(c *gin.Context) {
	limit := defaultInsightLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			_ = c.Error(apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	page := h.dashboard.Insights(inbound.InsightQuery{
		Limit:    limit,
		Category: c.Query("category"),
	})

	h.logger.Infof("AI insights requested: %d returned", len(page.Items))
	response.OK(c, http.StatusOK, page.Items, gin.H{
		"total":     page.Total,
		"filtered":  len(page.Items),
		"timestamp": h.clock.Now(),
	})
}

func (h *DashboardHandler) GenerateInsight(c *gin.Context) {
	var cmd inbound.GenerateInsightCommand
	// An empty body is allowed; every field has a default.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			_ = c.Error(apperror.Validation("Invalid request body"))
			return
		}
	}

	insight, err := h.dashboard.GenerateInsight(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(apperror.Internal("Failed to generate AI insight", err))
		return
	}
	response.OK(c, http.StatusCreated, insight, nil)
}

func (h *DashboardHandler) Notifications(c *gin.Context) {
	notifications := h.dashboard.Notifications()
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	response.OK(c, http.StatusOK, notifications, gin.H{
		"total":  len(notifications),
		"unread": unread,
	})
}

func (h *DashboardHandler) WhatsAppStatus(c *gin.Context) {
	response.OK(c, http.StatusOK, h.dashboard.WhatsAppStatus(), nil)
}

func (h *DashboardHandler) SendWhatsAppMessage(c *gin.Context) {
	var cmd inbound.SendMessageCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		_ = c.Error(apperror.Validation("Phone number and message are required"))
		return
	}

	receipt, err := h.dashboard.SendWhatsAppMessage(c.Request.Context(), cmd)
	if errors.Is(err, inbound.ErrValidation) {
		_ = c.Error(apperror.Validation("Phone number and message are required"))
		return
	}
	if err != nil {
		_ = c.Error(apperror.Internal("Failed to send WhatsApp message", err))
		return
	}
	response.OK(c, http.StatusAccepted, receipt, nil)
}

func (h *DashboardHandler) Workflows(c *gin.Context) {
	workflows := h.dashboard.Workflows()
	active := 0
	for _, w := range workflows {
		if w.Status == "active" {
			active++
		}
	}
	response.OK(c, http.StatusOK, workflows, gin.H{
		"total":  len(workflows),
		"active": active,
	})
}

func (h *DashboardHandler) Integrations(c *gin.Context) {
	integrations := h.dashboard.Integrations()
	connected := 0
	for _, i := range integrations {
		if i.Status == "connected" {
			connected++
		}
	}
	response.OK(c, http.StatusOK, integrations, gin.H{
		"total":     len(integrations),
		"connected": connected,
	})
}

func (h *DashboardHandler) Revenue(c *gin.Context) {
	response.OK(c, http.StatusOK, h.dashboard.Revenue(), gin.H{
		"period":      c.DefaultQuery("period", defaultPeriod),
		"currency":    c.DefaultQuery("currency", defaultCurrency),
		"generatedAt": h.clock.Now(),
	})
}
