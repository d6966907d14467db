package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const senderTimeout = 10 * time.Second

// TelegramSender posts alerts to one chat through the Telegram Bot API.
type TelegramSender struct {
	endpoint string
	chatID   string
	client   *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat id.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		endpoint: "https://api.telegram.org/bot" + token + "/sendMessage",
		chatID:   chatID,
		client:   &http.Client{Timeout: senderTimeout},
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

// Send posts the alert via sendMessage with the title bolded in Markdown.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	body := map[string]string{
		"chat_id":    t.chatID,
		"text":       "*" + title + "*\n" + message,
		"parse_mode": "Markdown",
	}
	return postJSON(ctx, t.client, "telegram", t.endpoint, body)
}

// postJSON POSTs a JSON payload and treats any non-2xx response as an error,
// quoting up to 1 KiB of the response body.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: post: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, string(detail))
	}
	return nil
}
