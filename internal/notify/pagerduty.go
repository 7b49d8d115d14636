package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/types"
)

const pagerdutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

type pagerdutyPayload struct {
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
}

type pagerdutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key,omitempty"`
	Payload     pagerdutyPayload `json:"payload"`
}

type pagerdutyDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *pagerdutyDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	routingKey, ok := d.secrets.ChannelSecret(ch.Name, "ROUTING_KEY")
	if !ok {
		return fmt.Errorf("no routing key configured for channel %s", ch.Name)
	}

	// An up event resolves the open incident instead of opening a new one.
	action := "trigger"
	severity := "critical"
	switch r.Event.Type {
	case types.EventUp:
		action = "resolve"
		severity = "info"
	case types.EventDegraded:
		severity = "warning"
	}

	source := r.Event.ServiceID
	if source == "" {
		source = r.Event.Source
	}
	if source == "" {
		source = senderName
	}

	dedup := ""
	if r.Event.ServiceID != "" {
		dedup = "statuspulse-" + r.Event.ServiceID
	}

	payload := pagerdutyEvent{
		RoutingKey:  routingKey,
		EventAction: action,
		DedupKey:    dedup,
		Payload: pagerdutyPayload{
			Summary:  r.Title,
			Source:   source,
			Severity: severity,
		},
	}

	return postJSON(ctx, d.client, pagerdutyEventsURL, nil, payload, "PagerDuty")
}
