package subscriber

import (
	"maps"
	"slices"
	"time"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
)

// Entity keys of State.Statuses.
const (
	EntityConnection = "connection"
	EntityWhatsApp   = "whatsapp"
)

// EntityStatus is the latest status event seen for one entity.
type EntityStatus struct {
	Status    string            `json:"status"`
	Detail    map[string]string `json:"detail,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// State is the client-side view built from pushed events.
type State struct {
	Mode dashboard.Mode `json:"mode"`
	// Connected is true between a connection-status frame and the next drop.
	Connected bool `json:"connected"`
	// Stale is true after a drop until the server greets us again.
	Stale bool `json:"stale"`

	Insights []dashboard.Notification       `json:"insights"`
	Statuses map[string]EntityStatus        `json:"statuses"`
	Messages map[string]event.MessageStatus `json:"messages"`
	Metrics  *dashboard.Metrics             `json:"metrics,omitempty"`
	// MetricsAt is when the last daily summary was produced.
	MetricsAt time.Time `json:"metricsAt,omitempty"`
}

func newState(mode dashboard.Mode) State {
	return State{
		Mode:     mode,
		Statuses: make(map[string]EntityStatus),
		Messages: make(map[string]event.MessageStatus),
	}
}

func (s State) clone() State {
	out := s
	out.Insights = slices.Clone(s.Insights)
	out.Statuses = make(map[string]EntityStatus, len(s.Statuses))
	for k, v := range s.Statuses {
		v.Detail = maps.Clone(v.Detail)
		out.Statuses[k] = v
	}
	out.Messages = maps.Clone(s.Messages)
	if s.Metrics != nil {
		m := *s.Metrics
		out.Metrics = &m
	}
	return out
}

// UnreadCount counts insights not yet marked read.
func (s State) UnreadCount() int {
	n := 0
	for _, in := range s.Insights {
		if !in.Read {
			n++
		}
	}
	return n
}
