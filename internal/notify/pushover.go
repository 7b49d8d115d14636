package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/types"
)

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

type pushoverMessage struct {
	Token    string `json:"token"`
	User     string `json:"user"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

type pushoverDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *pushoverDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	appToken, ok := d.secrets.ChannelSecret(ch.Name, "TOKEN")
	if !ok {
		return fmt.Errorf("no application token configured for channel %s", ch.Name)
	}
	userKey, ok := d.secrets.ChannelSecret(ch.Name, "USER_KEY")
	if !ok {
		return fmt.Errorf("no user key configured for channel %s", ch.Name)
	}

	priority := 0
	if r.Event.Type == types.EventDown {
		priority = 1
	}

	payload := pushoverMessage{
		Token:    appToken,
		User:     userKey,
		Title:    r.Title,
		Message:  r.Body,
		Priority: priority,
	}

	return postJSON(ctx, d.client, pushoverAPIURL, nil, payload, "Pushover")
}
