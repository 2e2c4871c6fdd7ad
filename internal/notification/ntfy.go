package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NtfyProvider pushes alerts to an ntfy topic (self-hosted or ntfy.sh)
type NtfyProvider struct{}

func init() {
	RegisterProvider(&NtfyProvider{})
}

func (n *NtfyProvider) Name() string {
	return "ntfy"
}

func (n *NtfyProvider) Send(ctx context.Context, target *Target, message *Message) error {
	serverURL, _ := target.Config["server_url"].(string)
	topic, _ := target.Config["topic"].(string)
	priority, _ := target.Config["priority"].(float64)
	token, _ := target.Config["token"].(string)

	if serverURL == "" {
		serverURL = "https://ntfy.sh"
	}
	if topic == "" {
		return fmt.Errorf("topic is required")
	}

	if priority == 0 {
		if message.Severity == "alert" {
			priority = 4
		} else {
			priority = 3
		}
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(serverURL, "/"), topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(FormatMessage(message)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Title", message.Title)
	req.Header.Set("Priority", fmt.Sprintf("%d", int(priority)))
	req.Header.Set("Tags", getTagsForSeverity(message.Severity))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Ntfy server returned status %d", resp.StatusCode)
	}

	return nil
}

func (n *NtfyProvider) Validate(config map[string]interface{}) error {
	topic, ok := config["topic"].(string)
	if !ok || topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

func getTagsForSeverity(severity string) string {
	if severity == "alert" {
		return "rotating_light,ambulance"
	}
	return "information_source"
}
