// Package session runs live monitoring sessions: one ticker goroutine per
// casualty that samples, stores, evaluates and fans out vital signs.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/events"
	"github.com/rescuemind/rescuemind/internal/vitals"
)

// Status is a point-in-time view of a session
type Status struct {
	ID         string              `json:"id"`
	Casualty   string              `json:"casualty"`
	StartedAt  time.Time           `json:"startedAt"`
	LastUpdate *time.Time          `json:"lastUpdate"`
	Elapsed    string              `json:"elapsed"`
	Samples    int                 `json:"samples"`
	Latest     *vitals.VitalSample `json:"latest"`
	Alerts     []vitals.Alert      `json:"alerts"`
}

// Session is one running monitor. The tick goroutine is the only writer;
// readers get copies taken under mu.
type Session struct {
	ID        string
	Casualty  string
	StartedAt time.Time

	manager   *Manager
	generator *vitals.Generator
	evaluator *vitals.Evaluator

	mu         sync.RWMutex
	history    *vitals.RollingHistory
	tracker    vitals.AlertTracker
	alerts     []vitals.Alert
	lastUpdate time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// run ticks until stop is closed. The first tick happens immediately.
func (s *Session) run(ticks <-chan time.Time, stopTicker func()) {
	defer close(s.done)
	defer stopTicker()

	s.tick()
	for {
		select {
		case <-ticks:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *Session) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// tick produces one sample and fans it out
func (s *Session) tick() {
	m := s.manager
	now := m.now()
	sample := s.generator.Generate()
	alerts := s.evaluator.Evaluate(sample)

	s.mu.Lock()
	s.history.Append(sample)
	s.lastUpdate = now
	s.alerts = alerts
	fresh := s.tracker.Observe(alerts)
	s.mu.Unlock()

	tick := events.TickEvent{
		SessionID: s.ID,
		Casualty:  s.Casualty,
		Time:      now,
		Sample:    sample,
		Alerts:    alerts,
	}

	if m.hub != nil {
		if err := m.hub.Broadcast(s.ID, events.TypeVitals, tick); err != nil {
			m.logger.Warn("Failed to broadcast vitals", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if m.publisher != nil {
		if err := m.publisher.PublishTick(tick); err != nil {
			m.logger.Warn("Failed to publish tick", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if m.metrics != nil {
		m.metrics.ObserveTick()
		for _, a := range alerts {
			m.metrics.ObserveAlert(string(a.Signal))
		}
	}

	if !fresh {
		return
	}

	alert := events.AlertEvent{
		SessionID: s.ID,
		Casualty:  s.Casualty,
		Time:      now,
		Alert:     alerts[len(alerts)-1],
		Sample:    sample,
	}
	m.logger.Info("Vital signs alert",
		zap.String("session", s.ID),
		zap.String("casualty", s.Casualty),
		zap.String("message", alert.Alert.Message))

	if m.hub != nil {
		if err := m.hub.Broadcast(s.ID, events.TypeAlert, alert); err != nil {
			m.logger.Warn("Failed to broadcast alert", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if m.publisher != nil {
		if err := m.publisher.PublishAlert(alert); err != nil {
			m.logger.Warn("Failed to publish alert", zap.String("session", s.ID), zap.Error(err))
		}
	}
	if m.notifier != nil {
		m.notify(alert)
	}
}

// Status returns a snapshot of the session state
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		ID:        s.ID,
		Casualty:  s.Casualty,
		StartedAt: s.StartedAt,
		Samples:   s.history.Len(),
		Alerts:    append([]vitals.Alert{}, s.alerts...),
	}
	end := s.manager.now()
	if !s.lastUpdate.IsZero() {
		last := s.lastUpdate
		st.LastUpdate = &last
	}
	if latest, ok := s.history.Latest(); ok {
		st.Latest = &latest
	}
	st.Elapsed = FormatElapsed(end.Sub(s.StartedAt))
	return st
}

// History returns a per-signal copy of the retained window, oldest first
func (s *Session) History() vitals.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Snapshot()
}

// Records formats the retained window as table records. The first retained
// sample was taken at StartedAt plus one period per evicted sample.
func (s *Session) Records() []vitals.TreatmentRecord {
	s.mu.RLock()
	series := s.history.Snapshot()
	dropped := s.history.Dropped()
	s.mu.RUnlock()

	period := s.manager.interval
	start := s.StartedAt.Add(time.Duration(dropped) * period)
	return vitals.Format(series, s.manager.thresholds, start, period)
}

// Alerts returns the alerts raised by the latest tick
func (s *Session) Alerts() []vitals.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]vitals.Alert{}, s.alerts...)
}

// LastAlert returns the last distinct alert message of the session
func (s *Session) LastAlert() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Last()
}

// Latest returns the newest sample
func (s *Session) Latest() (vitals.VitalSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Latest()
}

// FormatElapsed renders a duration as m:ss, or h:mm:ss from one hour on
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func (m *Manager) notify(alert events.AlertEvent) {
	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.notifier.NotifyAlert(ctx, alert); err != nil {
			m.logger.Warn("Failed to send alert notification",
				zap.String("session", alert.SessionID), zap.Error(err))
		}
	}()
}
