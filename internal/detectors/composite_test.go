package detectors

import (
	"testing"
	"time"

	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/models"
)

func TestCompositeDetectorMajorityVote(t *testing.T) {
	loose, err := NewThresholdDetector(config.ThresholdConfig{DefaultUpper: floatPtr(100)})
	if err != nil {
		t.Fatalf("loose detector: %v", err)
	}
	strict, err := NewThresholdDetector(config.ThresholdConfig{DefaultUpper: floatPtr(400)})
	if err != nil {
		t.Fatalf("strict detector: %v", err)
	}
	composite, err := NewCompositeDetector(loose, strict)
	if err != nil {
		t.Fatalf("composite detector: %v", err)
	}

	start := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	// 200 trips only the loose bound (1 of 2 votes), 500 trips both.
	series := metricSeries("api", "latency_ms", start, 10, 200, 500)

	anomalies := composite.Detect(series)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 majority anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Value != 500 {
		t.Fatalf("expected the 500 point, got %v", anomalies[0].Value)
	}
	if anomalies[0].DetectorKind != models.DetectorComposite {
		t.Fatalf("expected composite kind, got %s", anomalies[0].DetectorKind)
	}
	// Highest agreeing score wins: strict flagged with threshold 400.
	if anomalies[0].Score != 400 {
		t.Fatalf("expected best child score 400, got %v", anomalies[0].Score)
	}
}

func TestCompositeDetectorSingleChild(t *testing.T) {
	child, err := NewThresholdDetector(config.ThresholdConfig{DefaultUpper: floatPtr(1)})
	if err != nil {
		t.Fatalf("child detector: %v", err)
	}
	composite, err := NewCompositeDetector(child)
	if err != nil {
		t.Fatalf("composite detector: %v", err)
	}

	start := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	anomalies := composite.Detect(metricSeries("api", "latency_ms", start, 0.5, 2))
	if len(anomalies) != 1 {
		t.Fatalf("expected single child vote to carry, got %d", len(anomalies))
	}
}

func TestCompositeDetectorNoChildren(t *testing.T) {
	if _, err := NewCompositeDetector(); err == nil {
		t.Fatalf("expected error for empty composite")
	}
}

func TestScorerFuncAdapter(t *testing.T) {
	scorer := ScorerFunc(func(series []models.MetricPoint) []models.AnomalyRecord {
		if len(series) == 0 {
			return nil
		}
		last := series[len(series)-1]
		return []models.AnomalyRecord{{
			SourceID:     last.SourceID,
			MetricName:   last.MetricName,
			Timestamp:    last.Timestamp,
			Value:        last.Value,
			Score:        42,
			DetectorKind: models.DetectorExternal,
		}}
	})

	if scorer.Kind() != models.DetectorExternal {
		t.Fatalf("expected external kind, got %s", scorer.Kind())
	}
	start := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	anomalies := scorer.Detect(metricSeries("api", "latency_ms", start, 1, 2))
	if len(anomalies) != 1 || anomalies[0].Score != 42 {
		t.Fatalf("unexpected adapter output: %+v", anomalies)
	}
}
