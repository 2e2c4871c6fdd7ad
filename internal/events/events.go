// Package events defines the session events fanned out on every tick and
// publishes them to NATS.
package events

import (
	"time"

	"github.com/rescuemind/rescuemind/internal/vitals"
)

// Event types used on the websocket stream and as NATS subject prefixes
const (
	TypeVitals = "vitals"
	TypeAlert  = "alert"
)

// TickEvent is emitted after every tick of a session
type TickEvent struct {
	SessionID string             `json:"sessionId"`
	Casualty  string             `json:"casualty"`
	Time      time.Time          `json:"time"`
	Sample    vitals.VitalSample `json:"sample"`
	Alerts    []vitals.Alert     `json:"alerts"`
}

// AlertEvent is emitted when a session's last alert message changes
type AlertEvent struct {
	SessionID string             `json:"sessionId"`
	Casualty  string             `json:"casualty"`
	Time      time.Time          `json:"time"`
	Alert     vitals.Alert       `json:"alert"`
	Sample    vitals.VitalSample `json:"sample"`
}
