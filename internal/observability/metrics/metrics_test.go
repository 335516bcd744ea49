package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveCompletion("openai", "ok", 0.4)
	m.ObserveCompletion("openai", "transient", 3.1)
	m.IncCompletionRetry()
	m.IncCompletionRetry()
	m.ObserveGate(true, "now")
	m.ObserveGate(false, "")
	m.ObserveMessage("user")

	if got := testutil.ToFloat64(m.completionTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected one ok completion, got %v", got)
	}
	if got := testutil.ToFloat64(m.completionRetries); got != 2 {
		t.Fatalf("expected two retries, got %v", got)
	}
	if got := testutil.ToFloat64(m.gateDecisions.WithLabelValues("false", "none")); got != 1 {
		t.Fatalf("expected hidden gate decision with timing none, got %v", got)
	}
	if got := testutil.CollectAndCount(m.completionLatency); got != 1 {
		t.Fatalf("expected one latency series, got %d", got)
	}
}

func TestChatMetricsDefaultRegistry(t *testing.T) {
	m := NewChatMetrics(nil)
	m.ObserveMessage("assistant")
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveCompletion("openai", "ok", 0.1)
	m.IncCompletionRetry()
	m.ObserveGate(true, "later")
	m.ObserveMessage("user")
}
