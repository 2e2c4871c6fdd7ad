package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/events"
	"github.com/rescuemind/rescuemind/internal/vitals"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrInvalidCasualty = errors.New("casualty name is required")
)

const notifyTimeout = 30 * time.Second

// Broadcaster pushes events to websocket subscribers of a session
type Broadcaster interface {
	Broadcast(sessionID, msgType string, payload interface{}) error
}

// Notifier delivers alert notifications
type Notifier interface {
	NotifyAlert(ctx context.Context, ev events.AlertEvent) error
}

// Publisher forwards session events to the message bus
type Publisher interface {
	PublishTick(ev events.TickEvent) error
	PublishAlert(ev events.AlertEvent) error
}

// Recorder receives session counters
type Recorder interface {
	ObserveTick()
	ObserveAlert(signal string)
	SetActiveSessions(n int)
}

// Options configures a Manager. Hub, Notifier, Publisher and Metrics are optional.
type Options struct {
	TickInterval    time.Duration
	HistoryCapacity int
	Thresholds      vitals.ThresholdTable
	AllSignals      bool

	Hub       Broadcaster
	Notifier  Notifier
	Publisher Publisher
	Metrics   Recorder
	Logger    *zap.Logger

	// NewGenerator defaults to a wall-clock seeded generator per session
	NewGenerator func() *vitals.Generator
}

// Manager owns the running sessions
type Manager struct {
	interval   time.Duration
	capacity   int
	thresholds vitals.ThresholdTable
	evalOpts   vitals.EvaluatorOptions

	hub       Broadcaster
	notifier  Notifier
	publisher Publisher
	metrics   Recorder
	logger    *zap.Logger

	newGenerator func() *vitals.Generator
	newTicker    func(time.Duration) (<-chan time.Time, func())
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	notifyWG sync.WaitGroup
}

// NewManager creates a Manager
func NewManager(opts Options) *Manager {
	m := &Manager{
		interval:     opts.TickInterval,
		capacity:     opts.HistoryCapacity,
		thresholds:   opts.Thresholds,
		evalOpts:     vitals.EvaluatorOptions{AllSignals: opts.AllSignals},
		hub:          opts.Hub,
		notifier:     opts.Notifier,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		newGenerator: opts.NewGenerator,
		sessions:     make(map[string]*Session),
		now:          time.Now,
	}
	if m.interval <= 0 {
		m.interval = 5 * time.Second
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.newGenerator == nil {
		m.newGenerator = vitals.NewTimeSeededGenerator
	}
	m.newTicker = func(d time.Duration) (<-chan time.Time, func()) {
		t := time.NewTicker(d)
		return t.C, t.Stop
	}
	return m
}

// Thresholds returns the table every session is evaluated against
func (m *Manager) Thresholds() vitals.ThresholdTable {
	return m.thresholds
}

// TickInterval returns the sampling period
func (m *Manager) TickInterval() time.Duration {
	return m.interval
}

// Start launches a new session for casualty
func (m *Manager) Start(casualty string) (*Session, error) {
	casualty = strings.TrimSpace(casualty)
	if casualty == "" {
		return nil, ErrInvalidCasualty
	}

	s := &Session{
		ID:        uuid.NewString(),
		Casualty:  casualty,
		StartedAt: m.now(),
		manager:   m,
		generator: m.newGenerator(),
		evaluator: vitals.NewEvaluator(m.thresholds, m.evalOpts),
		history:   vitals.NewRollingHistory(m.capacity),
		alerts:    []vitals.Alert{},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	ticks, stopTicker := m.newTicker(m.interval)
	go s.run(ticks, stopTicker)

	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}
	m.logger.Info("Started monitoring session",
		zap.String("session", s.ID),
		zap.String("casualty", casualty),
		zap.Duration("interval", m.interval))
	return s, nil
}

// Stop halts a session and waits for its goroutine to exit
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	s.halt()
	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}
	m.logger.Info("Stopped monitoring session", zap.String("session", id))
	return nil
}

// StopAll halts every session and waits for in-flight notifications
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.halt()
	}
	m.notifyWG.Wait()

	if m.metrics != nil {
		m.metrics.SetActiveSessions(0)
	}
	m.logger.Info("All monitoring sessions stopped", zap.Int("count", len(sessions)))
}

// Get returns a running session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns the status of every session, oldest first
func (m *Manager) List() []Status {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
