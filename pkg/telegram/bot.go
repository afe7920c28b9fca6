package telegram

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Bot sends messages through the Telegram Bot API
type Bot struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewBot creates a bot for the given token
func NewBot(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, used by tests
func (b *Bot) WithBaseURL(base string) *Bot {
	b.baseURL = base + "/bot" + b.token
	return b
}

// IsConfigured reports whether a token was provided
func (b *Bot) IsConfigured() bool {
	return b.token != ""
}

// SendMessage delivers text to one chat
func (b *Bot) SendMessage(chatID, text string) error {
	endpoint := b.baseURL + "/sendMessage"

	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	resp, err := b.client.PostForm(endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
