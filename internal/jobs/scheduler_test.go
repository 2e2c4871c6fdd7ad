package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/repository"
)

var now = time.Date(2024, 6, 30, 3, 14, 0, 0, time.UTC)

type fakeTriage struct {
	rows         []models.TriageAnalysis
	deleteCutoff time.Time
}

func (f *fakeTriage) Create(context.Context, *models.TriageAnalysis) error { return nil }

func (f *fakeTriage) ListOlderThan(_ context.Context, cutoff time.Time) ([]models.TriageAnalysis, error) {
	var out []models.TriageAnalysis
	for _, r := range f.rows {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTriage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteCutoff = cutoff
	rows, _ := f.ListOlderThan(context.Background(), cutoff)
	return int64(len(rows)), nil
}

type fakeLogs struct {
	repository.TreatmentLogRepository
	cutoff time.Time
}

func (f *fakeLogs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, nil
}

type fakeStore struct {
	deleted []string
	fail    map[string]bool
}

func (f *fakeStore) Put(context.Context, string, string, []byte) (string, error) { return "", nil }

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.fail[key] {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func newScheduler(logs *fakeLogs, triage *fakeTriage, store *fakeStore) *Scheduler {
	s := NewScheduler(logs, triage, store, config.RetentionConfig{UploadDays: 30, TreatmentLogDays: 90}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestPurgeUploads(t *testing.T) {
	triage := &fakeTriage{rows: []models.TriageAnalysis{
		{ImageKey: "triage/old.jpg", CreatedAt: now.AddDate(0, 0, -31)},
		{ImageKey: "triage/new.jpg", CreatedAt: now.AddDate(0, 0, -1)},
	}}
	store := &fakeStore{}
	s := newScheduler(&fakeLogs{}, triage, store)

	n, err := s.PurgeUploads(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"triage/old.jpg"}, store.deleted)
	assert.Equal(t, now.AddDate(0, 0, -30), triage.deleteCutoff)
}

func TestPurgeUploadsKeepsRowsWhenImageDeleteFails(t *testing.T) {
	triage := &fakeTriage{rows: []models.TriageAnalysis{
		{ImageKey: "triage/old.jpg", CreatedAt: now.AddDate(0, 0, -40)},
	}}
	store := &fakeStore{fail: map[string]bool{"triage/old.jpg": true}}
	s := newScheduler(&fakeLogs{}, triage, store)

	n, err := s.PurgeUploads(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, triage.deleteCutoff.IsZero())
}

func TestPurgeTreatmentLogs(t *testing.T) {
	logs := &fakeLogs{}
	s := newScheduler(logs, &fakeTriage{}, &fakeStore{})

	n, err := s.PurgeTreatmentLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, now.AddDate(0, 0, -90), logs.cutoff)
}

func TestStartStop(t *testing.T) {
	s := newScheduler(&fakeLogs{}, &fakeTriage{}, &fakeStore{})
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
