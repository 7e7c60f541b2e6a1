package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/engine"
)

// levelRank orders event levels for threshold filtering.
var levelRank = map[engine.Level]int{
	engine.LevelInfo:     0,
	engine.LevelWarning:  1,
	engine.LevelCritical: 2,
}

// WebhookConfig configures the outbound alert poster.
type WebhookConfig struct {
	URL      string
	DeviceID string

	// MinLevel drops events below the threshold. Empty means
	// LevelWarning: completions stay local, refusals and stops go out.
	MinLevel engine.Level

	// Timeout bounds each POST. Zero means 10 seconds.
	Timeout time.Duration
}

// AlertPayload is the JSON body posted for each forwarded event.
type AlertPayload struct {
	DeviceID       string    `json:"device_id"`
	Time           time.Time `json:"time"`
	Level          string    `json:"level"`
	Message        string    `json:"message"`
	State          string    `json:"state"`
	RequiresManual bool      `json:"requires_manual"`
}

// WebhookAlerter POSTs qualifying events to a caregiver notification
// endpoint (SMS or push gateway).
type WebhookAlerter struct {
	cfg    WebhookConfig
	log    *zap.Logger
	client *resty.Client
}

// NewWebhookAlerter builds an alerter for the configured endpoint.
func NewWebhookAlerter(cfg WebhookConfig, log *zap.Logger) *WebhookAlerter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MinLevel == "" {
		cfg.MinLevel = engine.LevelWarning
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookAlerter{cfg: cfg, log: log, client: client}
}

// Alert forwards ev when it meets the level threshold.
func (w *WebhookAlerter) Alert(ev engine.Event) error {
	if levelRank[ev.Level] < levelRank[w.cfg.MinLevel] {
		return nil
	}

	payload := AlertPayload{
		DeviceID:       w.cfg.DeviceID,
		Time:           ev.Timestamp,
		Level:          string(ev.Level),
		Message:        ev.Message,
		State:          string(ev.State),
		RequiresManual: ev.RequiresManual,
	}

	resp, err := w.client.R().
		SetBody(payload).
		Post(w.cfg.URL)
	if err != nil {
		w.log.Error("alert webhook failed",
			zap.String("url", w.cfg.URL),
			zap.Error(err))
		return fmt.Errorf("post alert: %w", err)
	}
	if resp.IsError() {
		w.log.Error("alert webhook rejected",
			zap.String("url", w.cfg.URL),
			zap.Int("status_code", resp.StatusCode()))
		return fmt.Errorf("alert endpoint returned %d", resp.StatusCode())
	}

	w.log.Debug("alert delivered",
		zap.String("level", string(ev.Level)),
		zap.Bool("requires_manual", ev.RequiresManual))
	return nil
}
