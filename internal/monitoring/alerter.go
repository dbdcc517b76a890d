package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDatasetStale  AlertType = "dataset_stale"
	AlertFailureStreak AlertType = "failure_streak"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Dataset   string         `json:"dataset"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a health Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks each dataset in the snapshot against the thresholds and
// returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	staleAfter := time.Duration(a.cfg.StaleAfterHours) * time.Hour
	for _, h := range snap.Datasets {
		// Check consecutive failures.
		if a.cfg.FailureStreak > 0 && h.FailureStreak >= a.cfg.FailureStreak {
			lastErr := ""
			if h.LastRun != nil {
				lastErr = h.LastRun.Error
			}
			alerts = append(alerts, Alert{
				Type:     AlertFailureStreak,
				Severity: "high",
				Dataset:  h.Dataset,
				Message: fmt.Sprintf(
					"Dataset %s has failed %d runs in a row (threshold %d)",
					h.Dataset, h.FailureStreak, a.cfg.FailureStreak,
				),
				Details: map[string]any{
					"failure_streak": h.FailureStreak,
					"threshold":      a.cfg.FailureStreak,
					"last_error":     lastErr,
				},
				Timestamp: now,
			})
		}

		// Check staleness. A dataset that has never succeeded is covered by
		// the streak alert, not this one.
		if staleAfter <= 0 {
			continue
		}
		age, ok := h.Age(now)
		if !ok || age <= staleAfter {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertDatasetStale,
			Severity: "warning",
			Dataset:  h.Dataset,
			Message: fmt.Sprintf(
				"Dataset %s last succeeded %s ago (threshold %dh)",
				h.Dataset, age.Round(time.Minute), a.cfg.StaleAfterHours,
			),
			Details: map[string]any{
				"age_hours":       age.Hours(),
				"threshold_hours": a.cfg.StaleAfterHours,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("dataset", alert.Dataset),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("dataset", alert.Dataset),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
