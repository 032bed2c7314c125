package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New(prometheus.NewRegistry())
	if m.EventsTotal == nil || m.HandlerInvocationsTotal == nil || m.HandlerSkippedTotal == nil || m.HandlerDurationSeconds == nil {
		t.Fatal("expected all collectors to be initialized")
	}
}

func TestObserverCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.EventDispatched(handler.OnText)
	m.EventDispatched(handler.OnText)
	m.HandlerSkipped(handler.OnText, "help", "prefix")
	m.HandlerFinished(handler.OnText, "echo", 10*time.Millisecond, nil)
	m.HandlerFinished(handler.OnText, "echo", time.Millisecond, &runtime.HandlerInvocationError{Handler: "echo", Err: errors.New("boom")})
	m.HandlerFinished(handler.OnText, "echo", time.Millisecond, &runtime.HandlerInvocationError{Handler: "echo", Panic: "oops"})

	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("on_text")); got != 2 {
		t.Fatalf("expected 2 events, got %v", got)
	}
	if got := testutil.ToFloat64(m.HandlerSkippedTotal.WithLabelValues("on_text", "help", "prefix")); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	for _, status := range []string{"success", "error", "panic"} {
		if got := testutil.ToFloat64(m.HandlerInvocationsTotal.WithLabelValues("on_text", "echo", status)); got != 1 {
			t.Fatalf("expected 1 %s invocation, got %v", status, got)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.EventDispatched(handler.OnReady)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `roombot_events_total{listener="on_ready"} 1`) {
		t.Fatalf("expected events counter in output, got:\n%s", rec.Body.String())
	}
}
