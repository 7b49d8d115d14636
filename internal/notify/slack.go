package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
)

type SlackAttachment struct {
	Color     string `json:"color"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Footer    string `json:"footer"`
	Timestamp int64  `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

type slackDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *slackDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	webhookURL, ok := d.secrets.ChannelSecret(ch.Name, "WEBHOOK_URL")
	if !ok {
		return fmt.Errorf("no webhook URL configured for channel %s", ch.Name)
	}

	payload := SlackWebhookRequest{
		Username: senderName,
		Text:     r.Title,
		Attachments: []SlackAttachment{
			{
				Color:     slackColorFor(r.Event.Type),
				Title:     r.Title,
				Text:      r.Body,
				Footer:    senderName,
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return postJSON(ctx, d.client, webhookURL, nil, payload, "Slack")
}
