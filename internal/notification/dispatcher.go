package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/events"
)

// Dispatcher fans alert notifications out to the configured targets
type Dispatcher struct {
	targets []*Target
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher; targets with an unknown provider or an
// invalid config are skipped with a warning.
func NewDispatcher(targets []*Target, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, t := range targets {
		provider, ok := GetProvider(t.Type)
		if !ok {
			logger.Warn("Unknown notification provider", zap.String("type", t.Type))
			continue
		}
		if err := provider.Validate(t.Config); err != nil {
			logger.Warn("Invalid notification target", zap.String("name", t.Name), zap.Error(err))
			continue
		}
		d.targets = append(d.targets, t)
	}
	return d
}

// TargetsFromConfig builds the targets enabled in the environment
func TargetsFromConfig(cfg config.NotifyConfig) []*Target {
	var targets []*Target
	if cfg.WebhookURL != "" {
		targets = append(targets, &Target{
			Name:   "alert-webhook",
			Type:   "webhook",
			Active: true,
			Config: map[string]interface{}{"webhook_url": cfg.WebhookURL},
		})
	}
	if cfg.NtfyTopic != "" {
		targets = append(targets, &Target{
			Name:   "ntfy",
			Type:   "ntfy",
			Active: true,
			Config: map[string]interface{}{
				"server_url": cfg.NtfyServer,
				"topic":      cfg.NtfyTopic,
				"token":      cfg.NtfyToken,
				"priority":   float64(cfg.NtfyPriority),
			},
		})
	}
	if cfg.SlackWebhookURL != "" {
		targets = append(targets, &Target{
			Name:   "slack",
			Type:   "slack",
			Active: true,
			Config: map[string]interface{}{"webhook_url": cfg.SlackWebhookURL},
		})
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		targets = append(targets, &Target{
			Name:   "telegram",
			Type:   "telegram",
			Active: true,
			Config: map[string]interface{}{
				"bot_token": cfg.TelegramBotToken,
				"chat_id":   cfg.TelegramChatID,
			},
		})
	}
	return targets
}

// Enabled reports whether any target is configured
func (d *Dispatcher) Enabled() bool {
	return len(d.targets) > 0
}

// NotifyAlert sends a vital-signs alert to every target
func (d *Dispatcher) NotifyAlert(ctx context.Context, ev events.AlertEvent) error {
	return d.send(ctx, &Message{
		Title:     "Vital signs alert",
		Body:      ev.Alert.Message,
		Casualty:  ev.Casualty,
		SessionID: ev.SessionID,
		Signal:    string(ev.Alert.Signal),
		Severity:  "alert",
		Time:      ev.Time.Format(time.RFC3339),
		Important: true,
	})
}

// send delivers msg to all targets concurrently
func (d *Dispatcher) send(ctx context.Context, msg *Message) error {
	errCh := make(chan error, len(d.targets))
	for _, target := range d.targets {
		go func(t *Target) {
			if err := d.sendNotification(ctx, t, msg); err != nil {
				d.logger.Warn("Failed to send notification",
					zap.String("type", t.Type), zap.String("name", t.Name), zap.Error(err))
				errCh <- err
				return
			}
			errCh <- nil
		}(target)
	}

	var failed int
	for i := 0; i < len(d.targets); i++ {
		if err := <-errCh; err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to send %d/%d notifications", failed, len(d.targets))
	}
	return nil
}

func (d *Dispatcher) sendNotification(ctx context.Context, target *Target, msg *Message) error {
	if !target.Active {
		return nil
	}

	provider, ok := GetProvider(target.Type)
	if !ok {
		return fmt.Errorf("unknown notification provider: %s", target.Type)
	}

	return provider.Send(ctx, target, msg)
}
