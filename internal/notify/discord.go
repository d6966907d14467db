package notify

import (
	"context"
	"net/http"
)

// DiscordSender posts alerts to a Discord channel webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: senderTimeout},
	}
}

func (d *DiscordSender) Name() string { return "discord" }

// Send posts the alert as webhook content with the title bolded. Discord
// answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	body := map[string]string{
		"content": "**" + title + "**\n" + message,
	}
	return postJSON(ctx, d.client, "discord", d.webhookURL, body)
}
