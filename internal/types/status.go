package types

import "time"

// Service status values. These are the only four states a service can be in;
// transitions between them are computed exclusively by the status evaluator.
const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDegraded = "degraded"
	StatusUnknown  = "unknown"
)

// Notification event types.
const (
	EventDown     = "down"
	EventUp       = "up"
	EventDegraded = "degraded"
)

// Alert severities accepted on the external alert endpoint.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeverityOK       = "ok"
)

// HeartbeatRecord is the latest liveness signal seen for one service.
// Only the most recent heartbeat per service is retained.
type HeartbeatRecord struct {
	ServiceID  string            `json:"serviceId"`
	LastSeen   time.Time         `json:"lastSeen"`
	StatusHint string            `json:"statusHint,omitempty"` // "up" or "degraded", optional
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DayBucket counts evaluation cycles per status for one calendar day.
// Counters only ever increase.
type DayBucket struct {
	Up       int `json:"up"`
	Down     int `json:"down"`
	Degraded int `json:"degraded"`
	Unknown  int `json:"unknown"`
}

// Add increments the counter for the given status.
func (b *DayBucket) Add(status string) {
	switch status {
	case StatusUp:
		b.Up++
	case StatusDown:
		b.Down++
	case StatusDegraded:
		b.Degraded++
	default:
		b.Unknown++
	}
}

// StatusSummary is the evaluator-owned aggregate record for one service.
// It is written only by the evaluator, never by heartbeat ingestion, so the
// two producers never race on the same record.
type StatusSummary struct {
	ServiceID      string               `json:"serviceId"`
	Status         string               `json:"status"`
	LastSeen       *time.Time           `json:"lastSeen,omitempty"`
	LastTransition *time.Time           `json:"lastTransition,omitempty"`
	Consecutive    int                  `json:"consecutive"` // cycles in the current status
	Buckets        map[string]DayBucket `json:"buckets"`     // "2006-01-02" -> counts
}

// AlertEvent is one entry in the alert history, either generated internally
// by a status transition or ingested from an external system.
type AlertEvent struct {
	ID        string            `json:"id"` // time-prefixed, lexicographically sortable
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Severity  string            `json:"severity"`
	Source    string            `json:"source"`
	ServiceID string            `json:"serviceId,omitempty"`
	Status    string            `json:"status,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"timestamp"`
}

// EventSeverity maps an internal event type onto the severity recorded when
// a status transition is written to the alert history.
func EventSeverity(event string) string {
	switch event {
	case EventDown:
		return SeverityCritical
	case EventDegraded:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// SeverityEvent maps an external alert severity onto the internal event type
// used for template styling (emoji, color). It does not affect routing.
func SeverityEvent(severity string) string {
	switch severity {
	case SeverityCritical, SeverityError:
		return EventDown
	case SeverityWarning:
		return EventDegraded
	default:
		return EventUp
	}
}
