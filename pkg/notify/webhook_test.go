package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/notify"
)

func criticalEvent() engine.Event {
	return engine.Event{
		Timestamp:      time.Now().UTC(),
		Level:          engine.LevelCritical,
		Message:        "emergency stop triggered (interlock)",
		State:          engine.StateEmergencyStopped,
		RequiresManual: true,
	}
}

func TestWebhookAlertPosts(t *testing.T) {
	received := make(chan notify.AlertPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p notify.AlertPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	alerter := notify.NewWebhookAlerter(notify.WebhookConfig{
		URL:      srv.URL,
		DeviceID: "bed-7",
	}, zap.NewNop())

	require.NoError(t, alerter.Alert(criticalEvent()))

	select {
	case p := <-received:
		require.Equal(t, "bed-7", p.DeviceID)
		require.Equal(t, "critical", p.Level)
		require.Equal(t, "emergency_stopped", p.State)
		require.True(t, p.RequiresManual)
		require.Contains(t, p.Message, "emergency stop")
	case <-time.After(time.Second):
		t.Fatal("webhook endpoint never received the alert")
	}
}

func TestWebhookLevelThreshold(t *testing.T) {
	calls := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Default threshold is warning.
	alerter := notify.NewWebhookAlerter(notify.WebhookConfig{
		URL:      srv.URL,
		DeviceID: "bed-7",
	}, zap.NewNop())

	require.NoError(t, alerter.Alert(engine.Event{
		Level:   engine.LevelInfo,
		Message: "repositioned to left_lateral",
	}))
	require.Empty(t, calls, "info events stay local")

	require.NoError(t, alerter.Alert(engine.Event{
		Level:   engine.LevelWarning,
		Message: "rotation rejected",
	}))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("warning event should have been forwarded")
	}
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	alerter := notify.NewWebhookAlerter(notify.WebhookConfig{
		URL:      srv.URL,
		DeviceID: "bed-7",
	}, zap.NewNop())

	err := alerter.Alert(criticalEvent())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}
