package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/statuspulse/statuspulse/internal/types"
)

// ErrUnsupportedFormat is returned when no parser recognizes the payload.
var ErrUnsupportedFormat = errors.New("unsupported alert format")

// Parsed is one normalized external alert plus its optional channel
// allow-list.
type Parsed struct {
	Alert    types.AlertEvent
	Channels []string
}

type parserFunc func(body []byte, now time.Time) (Parsed, bool)

// parsers are tried in order; each either recognizes the payload or
// declines without error. The generic format is last because it matches the
// loosest shape.
var parsers = []struct {
	name string
	fn   parserFunc
}{
	{"alertmanager", parseAlertmanager},
	{"grafana", parseGrafana},
	{"generic", parseGeneric},
}

// Parse normalizes an external alert payload into one AlertEvent by trying
// each known format in sequence.
func Parse(body []byte, now time.Time) (Parsed, error) {
	for _, p := range parsers {
		if out, ok := p.fn(body, now); ok {
			out.Alert.ID = NewAlertID(now)
			out.Alert.CreatedAt = now
			return out, nil
		}
	}
	return Parsed{}, ErrUnsupportedFormat
}

// NewAlertID returns a time-prefixed, lexicographically sortable ID.
func NewAlertID(t time.Time) string {
	return t.UTC().Format("20060102150405.000") + "-" + uuid.NewString()[:8]
}

type alertmanagerAlert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    string            `json:"startsAt"`
}

type alertmanagerPayload struct {
	Receiver    string              `json:"receiver"`
	Status      string              `json:"status"`
	Alerts      []alertmanagerAlert `json:"alerts"`
	GroupLabels map[string]string   `json:"groupLabels"`
}

func parseAlertmanager(body []byte, _ time.Time) (Parsed, bool) {
	var payload alertmanagerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Parsed{}, false
	}
	if len(payload.Alerts) == 0 {
		return Parsed{}, false
	}

	first := payload.Alerts[0]

	title := payload.GroupLabels["alertname"]
	if title == "" {
		title = first.Labels["alertname"]
	}
	if title == "" {
		title = "Alertmanager alert"
	}

	firing := 0
	var lines []string
	for _, a := range payload.Alerts {
		if a.Status == "firing" {
			firing++
		}
		summary := a.Annotations["summary"]
		if summary == "" {
			summary = a.Annotations["description"]
		}
		if summary != "" {
			lines = append(lines, summary)
		}
	}
	if len(payload.Alerts) > 1 {
		title = fmt.Sprintf("%s (%d firing / %d total)", title, firing, len(payload.Alerts))
	}

	severity := normalizeSeverity(first.Labels["severity"], types.SeverityWarning)
	if payload.Status == "resolved" || firing == 0 {
		severity = types.SeverityOK
	}

	return Parsed{
		Alert: types.AlertEvent{
			Title:    title,
			Message:  strings.Join(lines, "\n"),
			Severity: severity,
			Source:   "alertmanager",
			Labels:   first.Labels,
		},
	}, true
}

type grafanaMatch struct {
	Metric string            `json:"metric"`
	Value  float64           `json:"value"`
	Tags   map[string]string `json:"tags"`
}

type grafanaPayload struct {
	Title       string            `json:"title"`
	RuleName    string            `json:"ruleName"`
	RuleURL     string            `json:"ruleUrl"`
	State       string            `json:"state"`
	Message     string            `json:"message"`
	EvalMatches []grafanaMatch    `json:"evalMatches"`
	Tags        map[string]string `json:"tags"`
}

func parseGrafana(body []byte, _ time.Time) (Parsed, bool) {
	var payload grafanaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Parsed{}, false
	}
	if payload.State == "" || (payload.RuleName == "" && len(payload.EvalMatches) == 0) {
		return Parsed{}, false
	}

	title := payload.RuleName
	if title == "" {
		title = payload.Title
	}
	if title == "" {
		title = "Grafana alert"
	}

	message := payload.Message
	for _, m := range payload.EvalMatches {
		message += fmt.Sprintf("\n%s = %g", m.Metric, m.Value)
	}

	var severity string
	switch payload.State {
	case "alerting":
		severity = types.SeverityCritical
	case "ok":
		severity = types.SeverityOK
	case "no_data":
		severity = types.SeverityWarning
	default:
		severity = types.SeverityInfo
	}

	return Parsed{
		Alert: types.AlertEvent{
			Title:    title,
			Message:  strings.TrimSpace(message),
			Severity: severity,
			Source:   "grafana",
			Labels:   payload.Tags,
		},
	}, true
}

type genericPayload struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Source   string            `json:"source"`
	Labels   map[string]string `json:"labels"`
	Channels []string          `json:"channels"`
}

func parseGeneric(body []byte, _ time.Time) (Parsed, bool) {
	var payload genericPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Parsed{}, false
	}
	if payload.Title == "" || payload.Message == "" {
		return Parsed{}, false
	}

	source := payload.Source
	if source == "" {
		source = "external"
	}

	return Parsed{
		Alert: types.AlertEvent{
			Title:    payload.Title,
			Message:  payload.Message,
			Severity: normalizeSeverity(payload.Severity, types.SeverityInfo),
			Source:   source,
			Labels:   payload.Labels,
		},
		Channels: payload.Channels,
	}, true
}

// normalizeSeverity lowercases and validates a severity, falling back when
// the value is absent or unrecognized.
func normalizeSeverity(s, fallback string) string {
	switch strings.ToLower(s) {
	case types.SeverityCritical:
		return types.SeverityCritical
	case types.SeverityError:
		return types.SeverityError
	case types.SeverityWarning:
		return types.SeverityWarning
	case types.SeverityInfo:
		return types.SeverityInfo
	case types.SeverityOK:
		return types.SeverityOK
	default:
		return fallback
	}
}
