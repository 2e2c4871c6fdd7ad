package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix prefixes every published subject
const SubjectPrefix = "rescuemind"

// Publisher publishes session events to NATS core subjects
// rescuemind.vitals.<session> and rescuemind.alert.<session>.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher connects to NATS with reconnects enabled
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("rescuemind"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("url", url))
	return &Publisher{nc: nc, logger: logger}, nil
}

// PublishTick publishes a tick event
func (p *Publisher) PublishTick(ev TickEvent) error {
	return p.publish(Subject(TypeVitals, ev.SessionID), ev)
}

// PublishAlert publishes an alert event
func (p *Publisher) PublishAlert(ev AlertEvent) error {
	return p.publish(Subject(TypeAlert, ev.SessionID), ev)
}

func (p *Publisher) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("Event published", zap.String("subject", subject), zap.Int("size", len(data)))
	return nil
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	return p.nc.Drain()
}

// Subject returns the NATS subject for an event type and session
func Subject(eventType, sessionID string) string {
	return SubjectPrefix + "." + eventType + "." + sessionID
}
