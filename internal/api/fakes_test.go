package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rescuemind/rescuemind/internal/drafts"
	"github.com/rescuemind/rescuemind/internal/hospital"
	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/triage"
)

type memoryUsers struct {
	mu    sync.RWMutex
	users map[string]*models.User
	seq   int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Phone == user.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Phone == phone {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

type memoryLogs struct {
	mu   sync.RWMutex
	logs map[string]*models.TreatmentLog
	seq  int
}

func newMemoryLogs() *memoryLogs {
	return &memoryLogs{logs: make(map[string]*models.TreatmentLog)}
}

func (r *memoryLogs) Create(_ context.Context, log *models.TreatmentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	log.ID = fmt.Sprintf("log-%d", r.seq)
	log.CreatedAt = time.Now()
	if log.AdditionalActions == nil {
		log.AdditionalActions = []models.TreatmentAction{}
	}
	copied := *log
	r.logs[log.ID] = &copied
	return nil
}

func (r *memoryLogs) FindByID(_ context.Context, id string) (*models.TreatmentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.logs[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryLogs) List(_ context.Context, filter repository.LogFilter) ([]models.TreatmentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TreatmentLog, 0, len(r.logs))
	for _, l := range r.logs {
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryLogs) MarkTransferred(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.TransferredAt = &at
	return nil
}

func (r *memoryLogs) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type memoryDrafts struct {
	mu     sync.Mutex
	drafts map[string]drafts.Draft
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{drafts: make(map[string]drafts.Draft)}
}

func (m *memoryDrafts) Get(_ context.Context, userID string) (drafts.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drafts[userID]; ok {
		return d, nil
	}
	return drafts.Draft{StartTime: time.Now().UTC(), AdditionalActions: []models.TreatmentAction{}}, nil
}

func (m *memoryDrafts) Merge(ctx context.Context, userID string, patch []byte) (drafts.Draft, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return drafts.Draft{}, drafts.ErrInvalidDraft
	}
	d, _ := m.Get(ctx, userID)
	if err := json.Unmarshal(patch, &d); err != nil {
		return drafts.Draft{}, drafts.ErrInvalidDraft
	}
	m.mu.Lock()
	m.drafts[userID] = d
	m.mu.Unlock()
	return d, nil
}

func (m *memoryDrafts) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, userID)
	return nil
}

type fakePredictor struct {
	err      error
	filename string
	size     int
}

func (f *fakePredictor) Predict(_ context.Context, _ string, filename string, image []byte) (*triage.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filename = filename
	f.size = len(image)
	return &triage.Result{ID: "analysis-1", ImageURL: "/uploads/x.jpg", Analysis: `{"ok":true}`}, nil
}

type fakeHospital struct {
	fail bool
	sent []string
}

func (f *fakeHospital) Send(_ context.Context, log *models.TreatmentLog) (*hospital.Receipt, error) {
	if f.fail {
		return nil, errors.New("hospital API returned status 503")
	}
	f.sent = append(f.sent, log.ID)
	return &hospital.Receipt{Reference: "HOSP-1", SentAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}, nil
}
