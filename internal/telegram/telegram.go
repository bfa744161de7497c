// Package telegram delivers the formatted notification via the Telegram
// bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"snownotify/internal/client"
)

// Notifier sends messages to a single chat.
type Notifier struct {
	c      *client.Client
	token  string
	chatID string
}

// New returns a Notifier for the given bot token and chat. baseURL is the
// API root, normally https://api.telegram.org. A nil httpClient falls back
// to the REST client's default.
func New(baseURL *url.URL, httpClient *http.Client, token, chatID string) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram bot token not set")
	}
	if chatID == "" {
		return nil, errors.New("telegram chat id not set")
	}
	return &Notifier{c: client.NewClient(baseURL, httpClient), token: token, chatID: chatID}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers one message. The text is opaque to this layer.
func (n *Notifier) Send(ctx context.Context, text string) error {
	body := sendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	req, err := n.c.NewRequest(ctx, http.MethodPost, fmt.Sprintf("/bot%s/sendMessage", n.token), body)
	if err != nil {
		return err
	}

	var resp sendMessageResponse
	if _, err := n.c.Do(req, &resp); err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram API error: %s", resp.Description)
	}
	return nil
}
