package triage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/storage"
)

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		"wound.jpg":    "image/jpeg",
		"wound.JPEG":   "image/jpeg",
		"scene.png":    "image/png",
		"scene.webp":   "image/webp",
		"anim.gif":     "image/gif",
		"scan.bmp":     "image/bmp",
		"notes.txt":    "application/octet-stream",
		"no-extension": "application/octet-stream",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, MimeType(name))
		})
	}
}

type fakeAnalyzer struct {
	analysis string
	err      error
	gotMime  string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.gotMime = mimeType
	return f.analysis, f.err
}

func (f *fakeAnalyzer) Model() string { return "fake-model" }

type memoryTriage struct {
	mu   sync.Mutex
	rows []models.TriageAnalysis
	err  error
}

func (m *memoryTriage) Create(_ context.Context, a *models.TriageAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.ID = "row-1"
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memoryTriage) ListOlderThan(context.Context, time.Time) ([]models.TriageAnalysis, error) {
	return nil, nil
}

func (m *memoryTriage) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newLocal(t *testing.T) *storage.Local {
	store, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return store
}

func TestPredictStoresAndRecords(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: `{"סה\"כ_אנשים": 1}`}
	repo := &memoryTriage{}
	svc := NewService(analyzer, newLocal(t), repo, "triage", zap.NewNop())

	res, err := svc.Predict(context.Background(), "user-1", "wound.PNG", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "row-1", res.ID)
	assert.Equal(t, analyzer.analysis, res.Analysis)
	assert.True(t, strings.HasPrefix(res.ImageURL, "/uploads/triage/"), res.ImageURL)
	assert.Equal(t, "image/png", analyzer.gotMime)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, "user-1", repo.rows[0].UserID)
	assert.Equal(t, int64(9), repo.rows[0].SizeBytes)
	assert.Equal(t, "fake-model", repo.rows[0].Model)
}

func TestPredictWithoutAnalyzer(t *testing.T) {
	svc := NewService(nil, newLocal(t), &memoryTriage{}, "triage", zap.NewNop())

	_, err := svc.Predict(context.Background(), "user-1", "wound.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestPredictPropagatesAnalyzerError(t *testing.T) {
	repo := &memoryTriage{}
	svc := NewService(&fakeAnalyzer{err: ErrInvalidAPIKey}, newLocal(t), repo, "triage", zap.NewNop())

	_, err := svc.Predict(context.Background(), "user-1", "wound.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
	assert.Empty(t, repo.rows)
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

func TestPredictRemovesImageOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		analyzer *fakeAnalyzer
		repo     *memoryTriage
	}{
		{"analyzer error", &fakeAnalyzer{err: errors.New("upstream 500")}, &memoryTriage{}},
		{"repository error", &fakeAnalyzer{analysis: "{}"}, &memoryTriage{err: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newLocal(t)
			svc := NewService(tt.analyzer, store, tt.repo, "triage", zap.NewNop())

			_, err := svc.Predict(context.Background(), "user-1", "wound.jpg", []byte("jpeg"))
			require.Error(t, err)
			assert.Empty(t, storedFiles(t, store.Dir()))
			assert.Empty(t, tt.repo.rows)
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GeminiConfig{}, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func geminiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		payload, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(payload), "inlineData") {
			http.Error(w, "image part missing", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiAnalyze(t *testing.T) {
	srv := geminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]}}]}`)

	g, err := NewGemini(context.Background(), config.GeminiConfig{APIKey: "test-key", Timeout: 5 * time.Second}, srv.URL)
	require.NoError(t, err)

	text, err := g.Analyze(context.Background(), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, "gemini-2.0-flash", g.Model())
}

func TestGeminiInvalidKey(t *testing.T) {
	srv := geminiServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.",`+
		`"status":"INVALID_ARGUMENT","details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`)

	g, err := NewGemini(context.Background(), config.GeminiConfig{APIKey: "bad-key"}, srv.URL)
	require.NoError(t, err)

	_, err = g.Analyze(context.Background(), []byte("jpeg"), "image/jpeg")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestGeminiOtherFailure(t *testing.T) {
	srv := geminiServer(t, http.StatusForbidden, `{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`)

	g, err := NewGemini(context.Background(), config.GeminiConfig{APIKey: "key"}, srv.URL)
	require.NoError(t, err)

	_, err = g.Analyze(context.Background(), []byte("jpeg"), "image/jpeg")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidAPIKey))
	assert.Contains(t, err.Error(), "gemini request failed")
}
