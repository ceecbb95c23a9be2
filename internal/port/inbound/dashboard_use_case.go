package inbound

import (
	"context"
	"errors"

	"go-dashboard-hub/internal/domain/dashboard"
)

// ErrValidation marks errors caused by a bad command rather than a failure
// of the service.
var ErrValidation = errors.New("validation failed")

type DashboardUseCase interface {
	Company() dashboard.Company
	Metrics() dashboard.Metrics
	Revenue() dashboard.RevenueMetrics
	Insights(query InsightQuery) InsightPage
	GenerateInsight(ctx context.Context, cmd GenerateInsightCommand) (dashboard.Insight, error)
	Notifications() []dashboard.Notification
	Workflows() []dashboard.Workflow
	Integrations() []dashboard.Integration
	WhatsAppStatus() dashboard.WhatsAppAccount
	SendWhatsAppMessage(ctx context.Context, cmd SendMessageCommand) (MessageReceipt, error)
}

type InsightQuery struct {
	Limit    int
	Category string
}

type InsightPage struct {
	Items []dashboard.Insight
	Total int
}

type GenerateInsightCommand struct {
	Type    string `json:"type"`
	Context string `json:"context"`
}

type SendMessageCommand struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type MessageReceipt struct {
	MessageID         string `json:"messageId"`
	Status            string `json:"status"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}
