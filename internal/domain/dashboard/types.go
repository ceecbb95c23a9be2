package dashboard

import (
	"fmt"
	"time"
)

// Mode is a dashboard tier the frontend can switch between.
type Mode string

const (
	ModeCompact   Mode = "compact"
	ModeAdvanced  Mode = "advanced"
	ModeAutopilot Mode = "autopilot"
)

// DefaultMode is used when a request does not name a mode.
const DefaultMode = ModeCompact

var modes = []Mode{ModeCompact, ModeAdvanced, ModeAutopilot}

// Modes returns the allow-list of dashboard modes.
func Modes() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

// ParseMode validates s against the allow-list.
func ParseMode(s string) (Mode, error) {
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown dashboard mode %q", s)
}

// Topic is the broadcast topic clients in this mode join.
func (m Mode) Topic() string {
	return TopicPrefix + string(m)
}

// TopicPrefix prefixes every dashboard topic.
const TopicPrefix = "dashboard-"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Impacts lists every impact level in ascending order.
func Impacts() []Impact {
	return []Impact{ImpactLow, ImpactMedium, ImpactHigh}
}

// Severity maps an insight's impact onto the notification scale.
func (i Impact) Severity() Severity {
	switch i {
	case ImpactHigh:
		return SeverityWarning
	case ImpactLow:
		return SeveritySuccess
	default:
		return SeverityInfo
	}
}

// Insight is an AI-style recommendation shown in the insights panel.
type Insight struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Confidence float64   `json:"confidence"`
	Impact     Impact    `json:"impact"`
	Timestamp  time.Time `json:"timestamp"`
	Actions    []string  `json:"actions"`
}

// Notification is the UI projection of an event. Read is client-local.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Read      bool           `json:"read"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NotificationFromInsight builds the unread notification for an insight.
func NotificationFromInsight(in Insight) Notification {
	return Notification{
		ID:        in.ID,
		Type:      "ai-insight",
		Title:     in.Title,
		Message:   in.Message,
		Severity:  in.Impact.Severity(),
		Timestamp: in.Timestamp,
	}
}

type Company struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Industry        string `json:"industry"`
	Location        string `json:"location"`
	Revenue         int64  `json:"revenue"`
	Employees       int    `json:"employees"`
	EstablishedYear int    `json:"establishedYear"`
}

type RevenueTrend struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Growth  float64 `json:"growth"`
}

type RevenueMetrics struct {
	Current  int64          `json:"current"`
	Previous int64          `json:"previous"`
	Growth   float64        `json:"growth"`
	Target   int64          `json:"target"`
	Trends   []RevenueTrend `json:"trends"`
}

type LeadSource struct {
	Name           string  `json:"name"`
	Count          int     `json:"count"`
	Quality        int     `json:"quality"`
	ConversionRate float64 `json:"conversionRate"`
}

type LeadMetrics struct {
	Total          int          `json:"total"`
	New            int          `json:"new"`
	Qualified      int          `json:"qualified"`
	Converted      int          `json:"converted"`
	ConversionRate float64      `json:"conversionRate"`
	Sources        []LeadSource `json:"sources"`
}

type CustomerSegment struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Value int64  `json:"value"`
}

type CustomerMetrics struct {
	Total        int               `json:"total"`
	Active       int               `json:"active"`
	ChurnRate    float64           `json:"churnRate"`
	Satisfaction float64           `json:"satisfaction"`
	Lifetime     int64             `json:"lifetime"`
	Segments     []CustomerSegment `json:"segments"`
}

type AutomationMetrics struct {
	ActiveWorkflows int     `json:"activeWorkflows"`
	TotalExecutions int     `json:"totalExecutions"`
	SuccessRate     float64 `json:"successRate"`
	TimesSaved      int     `json:"timesSaved"`
	ErrorRate       float64 `json:"errorRate"`
}

// Metrics is the snapshot a daily summary replaces wholesale on clients.
type Metrics struct {
	Revenue    RevenueMetrics    `json:"revenue"`
	Leads      LeadMetrics       `json:"leads"`
	Customers  CustomerMetrics   `json:"customers"`
	Automation AutomationMetrics `json:"automation"`
}

type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Executions  int       `json:"executions"`
	SuccessRate float64   `json:"successRate"`
	LastRun     time.Time `json:"lastRun"`
	Triggers    []string  `json:"triggers"`
	Actions     []string  `json:"actions"`
}

type Integration struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	Health   string    `json:"health"`
	Uptime   float64   `json:"uptime"`
	LastSync time.Time `json:"lastSync"`
}

type WhatsAppAccount struct {
	Connected        bool      `json:"connected"`
	SessionActive    bool      `json:"sessionActive"`
	QRCode           *string   `json:"qrCode"`
	BatteryLevel     int       `json:"batteryLevel"`
	LastActivity     time.Time `json:"lastActivity"`
	MessagesSent     int       `json:"messagesSent"`
	MessagesReceived int       `json:"messagesReceived"`
	ActiveChats      int       `json:"activeChats"`
}
