package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rescuemind/rescuemind/internal/models"
)

// DefaultListLimit caps treatment log listings
const DefaultListLimit = 100

// GormUsers is the Postgres UserRepository
type GormUsers struct {
	db *gorm.DB
}

// NewGormUsers creates a UserRepository
func NewGormUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (r *GormUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormUsers) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *GormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// GormTreatmentLogs is the Postgres TreatmentLogRepository
type GormTreatmentLogs struct {
	db *gorm.DB
}

// NewGormTreatmentLogs creates a TreatmentLogRepository
func NewGormTreatmentLogs(db *gorm.DB) *GormTreatmentLogs {
	return &GormTreatmentLogs{db: db}
}

func (r *GormTreatmentLogs) Create(ctx context.Context, log *models.TreatmentLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create treatment log: %w", err)
	}
	return nil
}

func (r *GormTreatmentLogs) FindByID(ctx context.Context, id string) (*models.TreatmentLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var log models.TreatmentLog
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error; err != nil {
		return nil, notFound(err, "treatment log")
	}
	return &log, nil
}

func (r *GormTreatmentLogs) List(ctx context.Context, filter LogFilter) ([]models.TreatmentLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var logs []models.TreatmentLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list treatment logs: %w", err)
	}
	return logs, nil
}

func (r *GormTreatmentLogs) MarkTransferred(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.TreatmentLog{}).Where("id = ?", id).UpdateColumn("transferred_at", at)
	if res.Error != nil {
		return fmt.Errorf("failed to mark treatment log transferred: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTreatmentLogs) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.TreatmentLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old treatment logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GormTriage is the Postgres TriageRepository
type GormTriage struct {
	db *gorm.DB
}

// NewGormTriage creates a TriageRepository
func NewGormTriage(db *gorm.DB) *GormTriage {
	return &GormTriage{db: db}
}

func (r *GormTriage) Create(ctx context.Context, analysis *models.TriageAnalysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return fmt.Errorf("failed to save triage analysis: %w", err)
	}
	return nil
}

func (r *GormTriage) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.TriageAnalysis, error) {
	var rows []models.TriageAnalysis
	if err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list old triage analyses: %w", err)
	}
	return rows, nil
}

func (r *GormTriage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.TriageAnalysis{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old triage analyses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
