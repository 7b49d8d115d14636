package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/statuspulse/statuspulse/internal/config"
)

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramDispatcher struct {
	client  *http.Client
	secrets config.SecretSource
}

func (d *telegramDispatcher) Send(ctx context.Context, ch config.Channel, r Rendered) error {
	botToken, ok := d.secrets.ChannelSecret(ch.Name, "BOT_TOKEN")
	if !ok {
		return fmt.Errorf("no bot token configured for channel %s", ch.Name)
	}
	chatID, ok := d.secrets.ChannelSecret(ch.Name, "CHAT_ID")
	if !ok {
		return fmt.Errorf("no chat ID configured for channel %s", ch.Name)
	}

	payload := telegramMessage{
		ChatID:    chatID,
		Text:      r.Title + "\n\n" + r.Body,
		ParseMode: "Markdown",
	}

	url := "https://api.telegram.org/bot" + botToken + "/sendMessage"
	return postJSON(ctx, d.client, url, nil, payload, "Telegram")
}
