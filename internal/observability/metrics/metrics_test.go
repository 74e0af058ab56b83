package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("sadness", OutcomeFallback, 0.2)
	m.ObserveTurn("sadness", OutcomeFallback, 0.1)
	m.ObserveGenerationFailure("timeout")
	m.ObserveStorageError("append_bot")

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("sadness", OutcomeFallback)); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.generationFailures.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.storageErrors.WithLabelValues("append_bot")); got != 1 {
		t.Fatalf("expected 1 storage error, got %v", got)
	}
	if n := testutil.CollectAndCount(m.turnDuration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("joy", OutcomeGenerated, 1)
	m.ObserveGenerationFailure("empty")
	m.ObserveStorageError("recent")
}
