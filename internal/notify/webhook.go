package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
)

// webhookPayload is the normalized JSON body sent to generic HTTP callbacks.
type webhookPayload struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	EventType string            `json:"eventType"`
	ServiceID string            `json:"serviceId,omitempty"`
	Severity  string            `json:"severity,omitempty"`
	Source    string            `json:"source,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type webhookDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *webhookDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	webhookURL, ok := d.secrets.ChannelSecret(ch.Name, "WEBHOOK_URL")
	if !ok {
		return fmt.Errorf("no webhook URL configured for channel %s", ch.Name)
	}

	payload := webhookPayload{
		Title:     r.Title,
		Message:   r.Body,
		EventType: r.Event.Type,
		ServiceID: r.Event.ServiceID,
		Severity:  r.Event.Severity,
		Source:    r.Event.Source,
		Labels:    r.Event.Labels,
		Timestamp: r.Event.At.UTC().Format(time.RFC3339),
	}

	headers := map[string]string{}
	if token, ok := d.secrets.ChannelSecret(ch.Name, "TOKEN"); ok {
		headers["Authorization"] = "Bearer " + token
	}

	return postJSON(ctx, d.client, webhookURL, headers, payload, "webhook")
}
