// Package repository persists users, treatment logs and triage analyses in Postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rescuemind/rescuemind/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePhone is returned when registering an existing phone number
	ErrDuplicatePhone = errors.New("phone already registered")
)

// UserRepository stores accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LogFilter narrows a treatment log listing; an empty UserID lists every log
type LogFilter struct {
	UserID string
	Limit  int
}

// TreatmentLogRepository stores saved treatment logs
type TreatmentLogRepository interface {
	Create(ctx context.Context, log *models.TreatmentLog) error
	FindByID(ctx context.Context, id string) (*models.TreatmentLog, error)
	List(ctx context.Context, filter LogFilter) ([]models.TreatmentLog, error)
	MarkTransferred(ctx context.Context, id string, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TriageRepository stores image triage results
type TriageRepository interface {
	Create(ctx context.Context, analysis *models.TriageAnalysis) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.TriageAnalysis, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
