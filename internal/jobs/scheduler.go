package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/storage"
)

const purgeTimeout = 5 * time.Minute

// Scheduler manages background jobs
type Scheduler struct {
	cron      *cron.Cron
	logs      repository.TreatmentLogRepository
	triage    repository.TriageRepository
	store     storage.Store
	retention config.RetentionConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new job scheduler
func NewScheduler(logs repository.TreatmentLogRepository, triage repository.TriageRepository, store storage.Store, retention config.RetentionConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		logs:      logs,
		triage:    triage,
		store:     store,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	// Purge triage images and analyses daily at 3:14 AM
	if _, err := s.cron.AddFunc("14 3 * * *", func() {
		s.run("purge uploads", s.PurgeUploads)
	}); err != nil {
		return err
	}

	// Purge treatment logs daily at 3:30 AM
	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		s.run("purge treatment logs", s.PurgeTreatmentLogs)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Job scheduler started",
		zap.Int("upload_retention_days", s.retention.UploadDays),
		zap.Int("log_retention_days", s.retention.TreatmentLogDays))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Job scheduler stopped")
}

func (s *Scheduler) run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	s.logger.Info("Running job", zap.String("job", name))
	n, err := job(ctx)
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("Job completed", zap.String("job", name), zap.Int64("deleted", n))
}

// PurgeUploads removes stored images and their analyses past the upload retention.
// Rows whose image could not be deleted are kept for the next run.
func (s *Scheduler) PurgeUploads(ctx context.Context) (int64, error) {
	cutoff := s.cutoff(s.retention.UploadDays)

	rows, err := s.triage.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, row := range rows {
		if err := s.store.Delete(ctx, row.ImageKey); err != nil {
			failed++
			s.logger.Warn("Failed to delete triage image", zap.String("key", row.ImageKey), zap.Error(err))
		}
	}
	if failed > 0 {
		s.logger.Warn("Keeping triage rows until their images are deleted", zap.Int("failed", failed))
		return 0, nil
	}

	return s.triage.DeleteOlderThan(ctx, cutoff)
}

// PurgeTreatmentLogs removes saved logs past the log retention
func (s *Scheduler) PurgeTreatmentLogs(ctx context.Context) (int64, error) {
	return s.logs.DeleteOlderThan(ctx, s.cutoff(s.retention.TreatmentLogDays))
}

func (s *Scheduler) cutoff(days int) time.Time {
	return s.now().AddDate(0, 0, -days)
}
