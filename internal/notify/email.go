package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/statuspulse/statuspulse/internal/config"
)

const emailAPIURL = "https://api.resend.com/emails"

type emailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type emailDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *emailDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	apiKey, ok := d.secrets.ChannelSecret(ch.Name, "API_KEY")
	if !ok {
		return fmt.Errorf("no API key configured for channel %s", ch.Name)
	}
	from, ok := d.secrets.ChannelSecret(ch.Name, "FROM")
	if !ok {
		return fmt.Errorf("no sender address configured for channel %s", ch.Name)
	}
	to, ok := d.secrets.ChannelSecret(ch.Name, "TO")
	if !ok {
		return fmt.Errorf("no recipient address configured for channel %s", ch.Name)
	}

	payload := emailMessage{
		From:    from,
		To:      strings.Split(to, ","),
		Subject: r.Title,
		Text:    r.Body,
	}

	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	return postJSON(ctx, d.client, emailAPIURL, headers, payload, "email API")
}
