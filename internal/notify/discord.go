package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields,omitempty"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

const senderName = "StatusPulse"

type discordDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *discordDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	webhookURL, ok := d.secrets.ChannelSecret(ch.Name, "WEBHOOK_URL")
	if !ok {
		return fmt.Errorf("no webhook URL configured for channel %s", ch.Name)
	}

	payload := DiscordWebhookRequest{
		Username: senderName,
		Embeds: []DiscordEmbed{
			{
				Title:       r.Title,
				Description: r.Body,
				Color:       colorFor(r.Event.Type),
				Footer:      &DiscordFooter{Text: senderName},
				Timestamp:   time.Now().Format(time.RFC3339),
			},
		},
	}

	return postJSON(ctx, d.client, webhookURL, nil, payload, "Discord")
}

// postJSON performs one outbound JSON POST shared by the webhook-style
// dispatchers. headers may be nil.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any, label string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", label, resp.StatusCode)
	}

	return nil
}
