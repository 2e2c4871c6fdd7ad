package hospital

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/models"
)

// simulatedLatency mimics a hospital round trip when no API is configured
const simulatedLatency = 900 * time.Millisecond

// Transfer is the payload posted to the hospital
type Transfer struct {
	LogID             string                   `json:"logId"`
	Casualty          string                   `json:"casualty"`
	StartTime         time.Time                `json:"startTime"`
	Action            string                   `json:"action"`
	Medication        string                   `json:"medication"`
	Notes             string                   `json:"notes"`
	AdditionalActions []models.TreatmentAction `json:"additionalActions"`
	VitalSigns        *models.VitalSigns       `json:"vitalSigns,omitempty"`
	SentAt            time.Time                `json:"sentAt"`
}

// Receipt describes an accepted transfer
type Receipt struct {
	Reference string    `json:"reference,omitempty"`
	Simulated bool      `json:"simulated"`
	SentAt    time.Time `json:"sentAt"`
}

type ackResponse struct {
	Reference string `json:"reference"`
}

// Client posts transfers to the hospital API
type Client struct {
	httpClient *resty.Client
	enabled    bool
	latency    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a client. Without an API URL every transfer is simulated.
func NewClient(cfg config.HospitalConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "RescueMind/1.0")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		httpClient: httpClient,
		enabled:    cfg.APIURL != "",
		latency:    simulatedLatency,
		logger:     logger,
		now:        time.Now,
	}
}

// Send transfers a saved log to the hospital
func (c *Client) Send(ctx context.Context, log *models.TreatmentLog) (*Receipt, error) {
	payload := Transfer{
		LogID:             log.ID,
		Casualty:          log.Casualty,
		StartTime:         log.StartTime,
		Action:            log.Action,
		Medication:        log.Medication,
		Notes:             log.Notes,
		AdditionalActions: log.AdditionalActions,
		VitalSigns:        log.VitalSigns,
		SentAt:            c.now().UTC(),
	}
	if payload.AdditionalActions == nil {
		payload.AdditionalActions = []models.TreatmentAction{}
	}

	if !c.enabled {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.logger.Info("Hospital transfer simulated", zap.String("log", log.ID))
		return &Receipt{Simulated: true, SentAt: payload.SentAt}, nil
	}

	var ack ackResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&ack).
		Post("/transfers")
	if err != nil {
		c.logger.Error("Hospital API call failed", zap.String("log", log.ID), zap.Error(err))
		return nil, fmt.Errorf("hospital API call failed: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Hospital API rejected transfer",
			zap.String("log", log.ID),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return nil, fmt.Errorf("hospital API returned status %d", resp.StatusCode())
	}

	c.logger.Info("Hospital transfer sent", zap.String("log", log.ID), zap.String("reference", ack.Reference))
	return &Receipt{Reference: ack.Reference, SentAt: payload.SentAt}, nil
}
