package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/config"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	collector := NewCollector(&mockStore{}, nil)
	cfg := config.MonitoringConfig{
		CheckIntervalSecs: 1,
		StaleAfterHours:   192,
		FailureStreak:     3,
	}
	checker := NewChecker(collector, NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	// Let it tick once then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Good: Run returned.
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	collector := NewCollector(&mockStore{}, nil)
	alerter := NewAlerter(config.MonitoringConfig{})

	// Zero interval should default to 5 minutes.
	checker := NewChecker(collector, alerter, config.MonitoringConfig{
		CheckIntervalSecs: 0,
	})
	assert.NotNil(t, checker)

	// Start and immediately cancel to verify it doesn't panic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	st := newHealthStore(t)
	seedFailure(t, st, "city", "boom")
	seedFailure(t, st, "city", "boom")

	cfg := config.MonitoringConfig{
		FailureStreak: 2,
		WebhookURL:    ts.URL,
	}
	checker := NewChecker(NewCollector(st, []string{"city"}), NewAlerter(cfg), cfg)

	checker.check(context.Background(), zap.NewNop())
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_CheckCollectError(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{
		FailureStreak: 1,
		WebhookURL:    ts.URL,
	}
	st := &mockStore{statsErr: assert.AnError}
	checker := NewChecker(NewCollector(st, []string{"city"}), NewAlerter(cfg), cfg)

	// Collect fails; nothing should reach the webhook.
	checker.check(context.Background(), zap.NewNop())
	assert.Zero(t, received.Load())
}
