package notify

import (
	"fmt"
	"time"

	"github.com/statuspulse/statuspulse/internal/alerts"
	"github.com/statuspulse/statuspulse/internal/types"
)

// Event is one notification request flowing through the router: either an
// internal status transition or an externally ingested alert.
type Event struct {
	// Type is the routing event type: down, up or degraded. For external
	// alerts it is derived from the severity and used for styling only.
	Type string

	ServiceID   string
	ServiceName string

	// Previous is the status before the transition. Empty for external alerts.
	Previous string

	LastSeen *time.Time
	At       time.Time

	// External marks alerts ingested via the alert endpoint. External events
	// skip cooldown and are excluded from channels that opted out of them.
	External bool

	// Fields carried by external alerts.
	Title    string
	Message  string
	Severity string
	Source   string
	Labels   map[string]string

	// Channels is an explicit allow-list from the triggering entity
	// (external alert payload). Empty means no restriction.
	Channels []string
}

// ChannelResult is the delivery outcome for one channel. Multi-channel
// dispatch always reports per-channel results, never one aggregate boolean.
type ChannelResult struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TransitionEvent builds the internal event for a status change.
func TransitionEvent(serviceID, serviceName, prev, next string, lastSeen *time.Time, at time.Time) Event {
	return Event{
		Type:        next,
		ServiceID:   serviceID,
		ServiceName: serviceName,
		Previous:    prev,
		LastSeen:    lastSeen,
		At:          at,
	}
}

// TransitionAlert builds the alert-history entry for an internal status
// transition.
func TransitionAlert(ev Event) types.AlertEvent {
	message := fmt.Sprintf("Status changed from %s to %s.", ev.Previous, ev.Type)
	if ev.LastSeen != nil {
		message += fmt.Sprintf(" Last heartbeat %s.", ev.LastSeen.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return types.AlertEvent{
		ID:        alerts.NewAlertID(ev.At),
		Title:     fmt.Sprintf("%s is %s", ev.ServiceName, ev.Type),
		Message:   message,
		Severity:  types.EventSeverity(ev.Type),
		Source:    "statuspulse",
		ServiceID: ev.ServiceID,
		Status:    ev.Type,
		CreatedAt: ev.At,
	}
}

// ExternalEvent builds the routing event for an ingested alert.
func ExternalEvent(alert types.AlertEvent, channels []string) Event {
	at := alert.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		Type:     types.SeverityEvent(alert.Severity),
		External: true,
		Title:    alert.Title,
		Message:  alert.Message,
		Severity: alert.Severity,
		Source:   alert.Source,
		Labels:   alert.Labels,
		Channels: channels,
		At:       at,
	}
}

const (
	ColorRed    = 16711680 // #FF0000
	ColorGreen  = 65280    // #00FF00
	ColorOrange = 16753920 // #FFA500
)

func emojiFor(event string) string {
	switch event {
	case types.EventDown:
		return "🔴"
	case types.EventDegraded:
		return "🟡"
	default:
		return "🟢"
	}
}

func colorFor(event string) int {
	switch event {
	case types.EventDown:
		return ColorRed
	case types.EventDegraded:
		return ColorOrange
	default:
		return ColorGreen
	}
}

// slackColorFor maps an event type onto Slack's attachment color names.
func slackColorFor(event string) string {
	switch event {
	case types.EventDown:
		return "danger"
	case types.EventDegraded:
		return "warning"
	default:
		return "good"
	}
}

// templateValues builds the substitution map for one event. Every base
// placeholder is always present so missing values render as empty strings;
// label placeholders are added as label.<name>.
func templateValues(ev Event) map[string]string {
	lastSeen := ""
	if ev.LastSeen != nil {
		lastSeen = ev.LastSeen.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	values := map[string]string{
		"emoji":        emojiFor(ev.Type),
		"eventType":    ev.Type,
		"serviceName":  ev.ServiceName,
		"serviceId":    ev.ServiceID,
		"lastSeen":     lastSeen,
		"timestamp":    ev.At.UTC().Format("2006-01-02 15:04:05 UTC"),
		"timestampISO": ev.At.UTC().Format(time.RFC3339),
		"title":        ev.Title,
		"message":      ev.Message,
		"severity":     ev.Severity,
		"source":       ev.Source,
	}
	for k, v := range ev.Labels {
		values["label."+k] = v
	}
	return values
}
