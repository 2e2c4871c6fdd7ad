package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/events"
	"github.com/rescuemind/rescuemind/internal/vitals"
)

type captured struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (c *captured) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.requests = append(c.requests, r)
		c.bodies = append(c.bodies, string(body))
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func alertEvent() events.AlertEvent {
	return events.AlertEvent{
		SessionID: "s-1",
		Casualty:  "patient1",
		Time:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Alert:     vitals.Alert{Signal: vitals.OxygenLevel, Message: "low oxygen level (90%)"},
	}
}

func TestNotifyAlertWebhookAndNtfy(t *testing.T) {
	webhook := &captured{}
	webhookSrv := httptest.NewServer(webhook.handler(http.StatusOK))
	defer webhookSrv.Close()

	ntfy := &captured{}
	ntfySrv := httptest.NewServer(ntfy.handler(http.StatusOK))
	defer ntfySrv.Close()

	targets := TargetsFromConfig(config.NotifyConfig{
		WebhookURL: webhookSrv.URL,
		NtfyServer: ntfySrv.URL,
		NtfyTopic:  "medics",
		NtfyToken:  "tk",
	})
	require.Len(t, targets, 2)

	d := NewDispatcher(targets, zap.NewNop())
	require.True(t, d.Enabled())
	require.NoError(t, d.NotifyAlert(context.Background(), alertEvent()))

	require.Len(t, webhook.bodies, 1)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(webhook.bodies[0]), &payload))
	assert.Equal(t, "low oxygen level (90%)", payload["body"])
	assert.Equal(t, "patient1", payload["casualty"])
	assert.Equal(t, "oxygenLevel", payload["signal"])
	assert.Equal(t, "2024-01-01T10:00:00Z", payload["time"])

	require.Len(t, ntfy.requests, 1)
	assert.Equal(t, "/medics", ntfy.requests[0].URL.Path)
	assert.Equal(t, "Bearer tk", ntfy.requests[0].Header.Get("Authorization"))
	assert.Equal(t, "4", ntfy.requests[0].Header.Get("Priority"))
	assert.Contains(t, ntfy.bodies[0], "Casualty: patient1")
}

func TestNotifyAlertReportsFailures(t *testing.T) {
	srv := httptest.NewServer((&captured{}).handler(http.StatusInternalServerError))
	defer srv.Close()

	d := NewDispatcher(TargetsFromConfig(config.NotifyConfig{WebhookURL: srv.URL}), zap.NewNop())
	err := d.NotifyAlert(context.Background(), alertEvent())
	assert.ErrorContains(t, err, "failed to send 1/1 notifications")
}

func TestNewDispatcherSkipsInvalidTargets(t *testing.T) {
	d := NewDispatcher([]*Target{
		{Name: "x", Type: "carrier-pigeon", Active: true},
		{Name: "y", Type: "ntfy", Active: true, Config: map[string]interface{}{}},
	}, zap.NewNop())

	assert.False(t, d.Enabled())
	assert.NoError(t, d.NotifyAlert(context.Background(), alertEvent()))
}

func TestTargetsFromConfigEmpty(t *testing.T) {
	assert.Empty(t, TargetsFromConfig(config.NotifyConfig{NtfyServer: "https://ntfy.sh"}))
}

func TestNotifyAlertSlackAndTelegram(t *testing.T) {
	slack := &captured{}
	slackSrv := httptest.NewServer(slack.handler(http.StatusOK))
	defer slackSrv.Close()

	telegram := &captured{}
	telegramSrv := httptest.NewServer(telegram.handler(http.StatusOK))
	defer telegramSrv.Close()

	targets := TargetsFromConfig(config.NotifyConfig{
		SlackWebhookURL:  slackSrv.URL,
		TelegramBotToken: "123:abc",
		TelegramChatID:   "-100",
	})
	require.Len(t, targets, 2)
	// point the bot at the test server
	targets[1].Config["api_url"] = telegramSrv.URL

	d := NewDispatcher(targets, zap.NewNop())
	err := d.NotifyAlert(context.Background(), alertEvent())
	// the capture handler writes no {"ok":true} body
	assert.ErrorContains(t, err, "failed to send 1/2 notifications")

	require.Len(t, slack.bodies, 1)
	var payload struct {
		Attachments []struct {
			Color string `json:"color"`
			Text  string `json:"text"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal([]byte(slack.bodies[0]), &payload))
	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, "danger", payload.Attachments[0].Color)
	assert.Equal(t, "low oxygen level (90%)", payload.Attachments[0].Text)

	require.Len(t, telegram.requests, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", telegram.requests[0].URL.Path)
	assert.Contains(t, telegram.bodies[0], `"parse_mode":"HTML"`)
}

func TestTelegramAcceptsOKResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	target := &Target{Type: "telegram", Active: true, Config: map[string]interface{}{
		"bot_token": "123:abc",
		"chat_id":   "-100",
		"api_url":   srv.URL,
	}}
	provider, ok := GetProvider("telegram")
	require.True(t, ok)
	assert.NoError(t, provider.Send(context.Background(), target, &Message{Title: "<b>", Severity: "alert"}))
}
