package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongSecret = "0123456789abcdef0123456789abcdef-strong"

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("APP_URL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development generates a secret")
	assert.NotEmpty(t, cfg.Warnings)
	assert.Equal(t, 5*time.Second, cfg.Monitor.TickInterval)
	assert.Equal(t, 120, cfg.Monitor.HistoryCapacity)
	assert.Equal(t, "patient1", cfg.Monitor.DefaultCasualty)
	assert.Equal(t, "he", cfg.Monitor.Locale)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.DraftTTL)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.Contains(t, cfg.Database.DSN, "sslmode=disable")
}

func TestLoadProduction(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"JWT_SECRET": "", "ACCESS_TOKEN_SECRET": ""},
			wantErr: "JWT_SECRET environment variable is required",
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "0123456789abcdef"},
			wantErr: "at least 32 characters",
		},
		{
			name:    "bad tick interval",
			env:     map[string]string{"JWT_SECRET": strongSecret, "MONITOR_TICK_INTERVAL": "soon"},
			wantErr: "MONITOR_TICK_INTERVAL",
		},
		{
			name:    "unsupported locale",
			env:     map[string]string{"JWT_SECRET": strongSecret, "MONITOR_LOCALE": "fr"},
			wantErr: "MONITOR_LOCALE",
		},
		{
			name: "access token secret alias",
			env:  map[string]string{"JWT_SECRET": "", "ACCESS_TOKEN_SECRET": strongSecret},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")
			t.Setenv("APP_URL", "https://rescue.example.org/")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strongSecret, cfg.Auth.JWTSecret)
			assert.Equal(t, []string{"https://rescue.example.org"}, cfg.CORSOrigins)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", strongSecret)
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("MONITOR_TICK_INTERVAL", "250ms")
	t.Setenv("ALERT_ALL_SIGNALS", "true")
	t.Setenv("S3_BUCKET", "triage-images")
	t.Setenv("HOSPITAL_API_URL", "https://hospital.test/api/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.TickInterval)
	assert.True(t, cfg.Monitor.AlertAllSignals)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "https://hospital.test/api", cfg.Hospital.APIURL)
}

func TestMonitorLocation(t *testing.T) {
	assert.Equal(t, time.UTC, MonitorConfig{Timezone: "Nowhere/Land"}.Location())
	assert.Equal(t, "Asia/Jerusalem", MonitorConfig{Timezone: "Asia/Jerusalem"}.Location().String())
}
