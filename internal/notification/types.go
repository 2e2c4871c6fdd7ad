package notification

import (
	"context"
	"fmt"
	"sync"
)

// Provider defines the interface for all notification providers
type Provider interface {
	// Name returns the unique identifier for this provider
	Name() string

	// Send sends a notification with the given message
	Send(ctx context.Context, target *Target, message *Message) error

	// Validate validates the provider configuration
	Validate(config map[string]interface{}) error
}

// Target is one configured notification destination
type Target struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type"` // webhook, ntfy, slack, telegram
	Config map[string]interface{} `json:"config"`
	Active bool                   `json:"active"`
}

// Message represents a notification message to be sent
type Message struct {
	Title     string
	Body      string
	Casualty  string
	SessionID string
	Signal    string
	Severity  string // "alert", "info"
	Time      string
	Important bool
}

// Registry holds all registered notification providers
var (
	providers = make(map[string]Provider)
	mu        sync.RWMutex
)

// RegisterProvider registers a new notification provider
func RegisterProvider(provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func GetProvider(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	provider, ok := providers[name]
	return provider, ok
}

// FormatMessage renders a message as plain text
func FormatMessage(msg *Message) string {
	marker := "ℹ️"
	if msg.Severity == "alert" {
		marker = "🚨"
	}

	body := fmt.Sprintf("%s %s\n\n", marker, msg.Title)
	body += msg.Body + "\n\n"
	body += fmt.Sprintf("Casualty: %s\n", msg.Casualty)
	if msg.SessionID != "" {
		body += fmt.Sprintf("Session: %s\n", msg.SessionID)
	}
	body += fmt.Sprintf("Time: %s\n", msg.Time)

	return body
}
