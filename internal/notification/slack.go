package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackProvider sends Slack incoming-webhook notifications
type SlackProvider struct{}

func init() {
	RegisterProvider(&SlackProvider{})
}

func (s *SlackProvider) Name() string {
	return "slack"
}

func (s *SlackProvider) Send(ctx context.Context, target *Target, message *Message) error {
	webhookURL, _ := target.Config["webhook_url"].(string)
	channel, _ := target.Config["channel"].(string)

	if webhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}

	color := "#808080"
	iconEmoji := ":information_source:"
	if message.Severity == "alert" {
		color = "danger"
		iconEmoji = ":rotating_light:"
	}

	fields := []map[string]interface{}{
		{"title": "Casualty", "value": message.Casualty, "short": true},
	}
	if message.Signal != "" {
		fields = append(fields, map[string]interface{}{"title": "Signal", "value": message.Signal, "short": true})
	}
	if message.SessionID != "" {
		fields = append(fields, map[string]interface{}{"title": "Session", "value": message.SessionID, "short": false})
	}

	payload := map[string]interface{}{
		"username":   "RescueMind",
		"icon_emoji": iconEmoji,
		"attachments": []map[string]interface{}{{
			"color":  color,
			"title":  message.Title,
			"text":   message.Body,
			"fields": fields,
			"footer": message.Time,
			"ts":     time.Now().Unix(),
		}},
	}
	if channel != "" {
		payload["channel"] = channel
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *SlackProvider) Validate(config map[string]interface{}) error {
	url, ok := config["webhook_url"].(string)
	if !ok || url == "" {
		return fmt.Errorf("webhook_url is required")
	}
	return nil
}
