package triage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/storage"
)

// Result is the answer returned to the client
type Result struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Analysis string `json:"analysis"`
}

// Service stores an uploaded image, analyzes it and records the outcome
type Service struct {
	analyzer  Analyzer
	store     storage.Store
	repo      repository.TriageRepository
	keyPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a triage service. A nil analyzer makes Predict fail with ErrMissingAPIKey.
func NewService(analyzer Analyzer, store storage.Store, repo repository.TriageRepository, keyPrefix string, logger *zap.Logger) *Service {
	return &Service{
		analyzer:  analyzer,
		store:     store,
		repo:      repo,
		keyPrefix: keyPrefix,
		logger:    logger,
		now:       time.Now,
	}
}

// Predict runs the full triage flow for one uploaded image
func (s *Service) Predict(ctx context.Context, userID, filename string, image []byte) (*Result, error) {
	if s.analyzer == nil {
		return nil, ErrMissingAPIKey
	}
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	mimeType := MimeType(filename)
	key := storage.NewKey(s.keyPrefix, filename, s.now())

	url, err := s.store.Put(ctx, key, mimeType, image)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	s.logger.Info("Image stored for triage",
		zap.String("key", key), zap.String("mime", mimeType), zap.Int("size", len(image)))

	analysis, err := s.analyzer.Analyze(ctx, image, mimeType)
	if err != nil {
		s.logger.Error("Gemini analysis failed", zap.String("key", key), zap.Error(err))
		s.discard(ctx, key)
		return nil, err
	}

	row := &models.TriageAnalysis{
		UserID:    userID,
		ImageKey:  key,
		MimeType:  mimeType,
		SizeBytes: int64(len(image)),
		Model:     s.analyzer.Model(),
		Analysis:  analysis,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	return &Result{ID: row.ID, ImageURL: url, Analysis: analysis}, nil
}

// discard removes an image that no triage row will reference. Purge jobs
// only find images through their rows.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to remove unreferenced triage image", zap.String("key", key), zap.Error(err))
	}
}
