package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramProvider sends Telegram bot notifications
type TelegramProvider struct{}

func init() {
	RegisterProvider(&TelegramProvider{})
}

func (t *TelegramProvider) Name() string {
	return "telegram"
}

func (t *TelegramProvider) Send(ctx context.Context, target *Target, message *Message) error {
	botToken, _ := target.Config["bot_token"].(string)
	chatID, _ := target.Config["chat_id"].(string)
	apiURL, _ := target.Config["api_url"].(string)

	if botToken == "" {
		return fmt.Errorf("bot_token is required")
	}
	if chatID == "" {
		return fmt.Errorf("chat_id is required")
	}
	if apiURL == "" {
		apiURL = telegramAPI
	}

	marker := "ℹ️"
	if message.Severity == "alert" {
		marker = "🚨"
	}

	text := fmt.Sprintf("<b>%s %s</b>\n\n", marker, html.EscapeString(message.Title))
	text += html.EscapeString(message.Body) + "\n\n"
	text += fmt.Sprintf("<b>Casualty:</b> %s\n", html.EscapeString(message.Casualty))
	if message.SessionID != "" {
		text += fmt.Sprintf("<b>Session:</b> %s\n", html.EscapeString(message.SessionID))
	}
	text += fmt.Sprintf("<b>Time:</b> %s", message.Time)

	payload := map[string]interface{}{
		"chat_id":              chatID,
		"text":                 text,
		"parse_mode":           "HTML",
		"disable_notification": !message.Important,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(apiURL, "/"), botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		// the request URL carries the bot token
		return fmt.Errorf("failed to send Telegram message")
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	return nil
}

func (t *TelegramProvider) Validate(config map[string]interface{}) error {
	botToken, ok := config["bot_token"].(string)
	if !ok || botToken == "" {
		return fmt.Errorf("bot_token is required")
	}
	chatID, ok := config["chat_id"].(string)
	if !ok || chatID == "" {
		return fmt.Errorf("chat_id is required")
	}
	return nil
}
