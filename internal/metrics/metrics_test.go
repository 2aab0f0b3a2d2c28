package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveAnalysisCounts(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess))
	ObserveAnalysis(10*time.Millisecond, OutcomeSuccess)
	after := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess))
	if after != before+1 {
		t.Fatalf("success count = %v, want %v", after, before+1)
	}

	beforeErr := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeError))
	ObserveAnalysis(10*time.Millisecond, OutcomeError)
	afterErr := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeError))
	if afterErr != beforeErr+1 {
		t.Fatalf("error count = %v, want %v", afterErr, beforeErr+1)
	}
}

func TestAddSkipped(t *testing.T) {
	before := testutil.ToFloat64(recordsSkippedTotal.WithLabelValues("metric"))
	AddSkipped("metric", 3)
	AddSkipped("metric", 0)
	AddSkipped("metric", -1)
	after := testutil.ToFloat64(recordsSkippedTotal.WithLabelValues("metric"))
	if after != before+3 {
		t.Fatalf("skipped count = %v, want %v", after, before+3)
	}
}
