package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ent0n29/amora/internal/generation"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8)
	w.Observe("story", 500)
	w.Observe("story", 700)
	w.Observe("story", 900)
	w.ObserveIndicator("fallback_story")
	w.ObserveIndicator("fallback_story")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "story" || s.Samples != 3 {
		t.Fatalf("unexpected stage stats: %+v", s)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 15000 {
		t.Fatalf("TargetP95MS = %.2f, want 15000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %+v, want fallback_story x2", snap.Indicators)
	}
}

func TestLatencyWindowWrapsRing(t *testing.T) {
	w := newLatencyWindow(2)
	w.Observe("image", 100)
	w.Observe("image", 200)
	w.Observe("image", 300)

	s := w.Snapshot().Stages[0]
	if s.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgMS != 250 {
		t.Fatalf("AvgMS = %.2f, want 250 (oldest sample evicted)", s.AvgMS)
	}
}

func TestMetricsObserveAttempt(t *testing.T) {
	m := NewMetricsWith("test", prometheus.NewRegistry())
	m.ObserveAttempt(generation.Attempt{Provider: "huggingface", Outcome: "loading", Duration: 40 * time.Millisecond})
	m.ObserveAttempt(generation.Attempt{Provider: "huggingface", Outcome: "success", Duration: 60 * time.Millisecond})
	m.ObserveBackoff("huggingface", 15*time.Second)
	m.ObserveFallback("story")

	if got := testutil.ToFloat64(m.GenerationAttempts.WithLabelValues("huggingface", "loading")); got != 1 {
		t.Fatalf("loading attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("story")); got != 1 {
		t.Fatalf("story fallbacks = %v, want 1", got)
	}

	snap := m.SnapshotLatency()
	if len(snap.Stages) != 1 || snap.Stages[0].Stage != "attempt_huggingface" || snap.Stages[0].Samples != 2 {
		t.Fatalf("stages = %+v", snap.Stages)
	}
	names := map[string]int{}
	for _, ind := range snap.Indicators {
		names[ind.Name] = ind.Count
	}
	if names["huggingface_loading"] != 1 || names["fallback_story"] != 1 {
		t.Fatalf("indicators = %+v", snap.Indicators)
	}

	m.ResetLatency()
	if len(m.SnapshotLatency().Stages) != 0 {
		t.Fatalf("expected empty window after reset")
	}
}
