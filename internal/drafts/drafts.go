// Package drafts keeps the in-progress treatment log of each user in Redis.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/models"
)

const keyPrefix = "rescuemind:draft:"

// ErrInvalidDraft is returned when a patch is not a JSON object
var ErrInvalidDraft = errors.New("draft must be a JSON object")

// Draft is an unsaved treatment log
type Draft struct {
	StartTime         time.Time                `json:"startTime"`
	SessionID         string                   `json:"sessionId,omitempty"`
	Casualty          string                   `json:"casualty"`
	Action            string                   `json:"action"`
	Medication        string                   `json:"medication"`
	Notes             string                   `json:"notes"`
	AdditionalActions []models.TreatmentAction `json:"additionalActions"`
	VitalSigns        *models.VitalSigns       `json:"vitalSigns,omitempty"`
}

// Store reads and writes drafts with a sliding TTL
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewClient connects to Redis and verifies the connection
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewStore creates a draft store
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logger, now: time.Now}
}

// Default returns an empty draft started now
func (s *Store) Default() Draft {
	return Draft{
		StartTime:         s.now().UTC(),
		AdditionalActions: []models.TreatmentAction{},
	}
}

// Get returns the stored draft, or a fresh default when none is stored or
// the stored value cannot be decoded.
func (s *Store) Get(ctx context.Context, userID string) (Draft, error) {
	val, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.Default(), nil
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to read draft: %w", err)
	}

	d := s.Default()
	if err := json.Unmarshal(val, &d); err != nil {
		s.logger.Warn("Discarding unreadable draft", zap.String("user", userID), zap.Error(err))
		return s.Default(), nil
	}
	if d.AdditionalActions == nil {
		d.AdditionalActions = []models.TreatmentAction{}
	}
	return d, nil
}

// Merge overlays the fields present in patch on the stored draft and saves it
func (s *Store) Merge(ctx context.Context, userID string, patch []byte) (Draft, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return Draft{}, ErrInvalidDraft
	}

	d, err := s.Get(ctx, userID)
	if err != nil {
		return Draft{}, err
	}
	if err := json.Unmarshal(patch, &d); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if d.AdditionalActions == nil {
		d.AdditionalActions = []models.TreatmentAction{}
	}

	if err := s.Save(ctx, userID, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Save replaces the stored draft
func (s *Store) Save(ctx context.Context, userID string, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Delete removes the stored draft
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func key(userID string) string {
	return keyPrefix + userID
}
