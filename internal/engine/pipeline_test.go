package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/detectors"
	"github.com/warroomstack/warroom-rca/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func newTestPipeline(t *testing.T, upper float64, window time.Duration, rules string) *Pipeline {
	t.Helper()
	detector, err := detectors.NewThresholdDetector(config.ThresholdConfig{DefaultUpper: &upper})
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	correlator, err := NewCorrelator(window)
	if err != nil {
		t.Fatalf("correlator: %v", err)
	}
	table, err := LoadKnowledgeTable(writeRulePack(t, rules))
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	pipeline, err := NewPipeline(nil, detector, correlator, NewRootCauseEngine(table, nil))
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return pipeline
}

func TestPipelineEndToEnd(t *testing.T) {
	pipeline := newTestPipeline(t, 100, 2*time.Second, `
rules:
  - id: api-latency
    match:
      metric_contains: ["latency"]
      severity: error
    category: api
    rationale: "{source} latency spike with error logs"
`)

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 10},
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase.Add(time.Second), Value: 500},
		},
		Logs: []models.LogRecord{
			{SourceID: "api", Timestamp: testBase.Add(1500 * time.Millisecond), Severity: models.SeverityError, Message: "upstream timeout"},
		},
	}

	report, err := pipeline.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(report.Clusters))
	}
	cluster := report.Clusters[0]
	if len(cluster.Anomalies) != 1 || len(cluster.Logs) != 1 {
		t.Fatalf("cluster must hold the anomaly and the log, got %d/%d", len(cluster.Anomalies), len(cluster.Logs))
	}
	if cluster.Anomalies[0].Value != 500 {
		t.Fatalf("wrong anomaly in cluster: %+v", cluster.Anomalies[0])
	}

	if len(report.Recommendations) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(report.Recommendations))
	}
	rec := report.Recommendations[0]
	if rec.Category != models.CategoryAPI {
		t.Fatalf("category = %s, want api", rec.Category)
	}
	if rec.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", rec.Confidence)
	}
	if rec.ClusterID != cluster.ID {
		t.Fatalf("recommendation points at %q, cluster is %q", rec.ClusterID, cluster.ID)
	}

	if report.RunID == "" {
		t.Fatalf("report must carry a run id")
	}
	if report.Summary.TotalAnomalies != 1 || report.Summary.TotalClusters != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.Summary.MostProblematicSource != "api" {
		t.Fatalf("most problematic source = %q", report.Summary.MostProblematicSource)
	}
}

func TestPipelineEmptyBatch(t *testing.T) {
	pipeline := newTestPipeline(t, 100, 2*time.Second, `
rules:
  - id: any
    category: unknown
    rationale: "n/a"
`)

	report, err := pipeline.Run(context.Background(), models.Batch{})
	if err != nil {
		t.Fatalf("empty batch must not fail: %v", err)
	}
	if len(report.Recommendations) != 0 || len(report.Clusters) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestPipelineCountsMalformedRecords(t *testing.T) {
	pipeline := newTestPipeline(t, 100, 2*time.Second, `
rules:
  - id: any
    category: unknown
    rationale: "n/a"
`)

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "", MetricName: "latency_ms", Timestamp: testBase, Value: 10},
			{SourceID: "api", MetricName: "latency_ms", Value: 10},
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 10},
		},
		Logs: []models.LogRecord{
			{SourceID: "api", Severity: models.SeverityError, Message: "no timestamp"},
		},
	}

	report, err := pipeline.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.SkippedMetrics != 2 {
		t.Fatalf("skipped metrics = %d, want 2", report.SkippedMetrics)
	}
	if report.SkippedLogs != 1 {
		t.Fatalf("skipped logs = %d, want 1", report.SkippedLogs)
	}
	if report.Summary.TotalMetrics != 1 {
		t.Fatalf("total metrics = %d, want 1", report.Summary.TotalMetrics)
	}
}

func TestPipelineEmptyKnowledgeTableDegrades(t *testing.T) {
	detector, err := detectors.NewThresholdDetector(config.ThresholdConfig{DefaultUpper: floatPtr(100)})
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	correlator, err := NewCorrelator(2 * time.Second)
	if err != nil {
		t.Fatalf("correlator: %v", err)
	}
	pipeline, err := NewPipeline(nil, detector, correlator, NewRootCauseEngine(KnowledgeTable{}, nil))
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 500},
		},
	}
	report, err := pipeline.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("empty table must degrade, not fail: %v", err)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0].Category != models.CategoryUnknown {
		t.Fatalf("expected unknown recommendation, got %+v", report.Recommendations)
	}
}

type failingRecommender struct{ err error }

func (f failingRecommender) Recommend([]models.CorrelationCluster) ([]models.Recommendation, error) {
	return nil, f.err
}

func TestPipelinePropagatesRecommenderFailure(t *testing.T) {
	detector, err := detectors.NewThresholdDetector(config.ThresholdConfig{DefaultUpper: floatPtr(100)})
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	correlator, err := NewCorrelator(2 * time.Second)
	if err != nil {
		t.Fatalf("correlator: %v", err)
	}
	boom := errors.New("scorer unavailable")
	pipeline, err := NewPipeline(nil, detector, correlator, failingRecommender{err: boom})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 500},
		},
	}
	if _, err := pipeline.Run(context.Background(), batch); !errors.Is(err, boom) {
		t.Fatalf("expected recommender error to propagate, got %v", err)
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	pipeline := newTestPipeline(t, 100, 2*time.Second, `
rules:
  - id: any
    category: unknown
    rationale: "n/a"
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 500},
		},
	}
	if _, err := pipeline.Run(ctx, batch); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestPipelineDeterministicAcrossRuns(t *testing.T) {
	pipeline := newTestPipeline(t, 100, 2*time.Second, `
rules:
  - id: api-latency
    match:
      metric_contains: ["latency"]
    category: api
    rationale: "latency pattern"
`)

	batch := models.Batch{
		Metrics: []models.MetricPoint{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: testBase, Value: 500},
			{SourceID: "db", MetricName: "latency_ms", Timestamp: testBase, Value: 700},
			{SourceID: "cache", MetricName: "latency_ms", Timestamp: testBase.Add(time.Second), Value: 300},
		},
	}

	first, err := pipeline.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := pipeline.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Clusters) != len(second.Clusters) {
		t.Fatalf("cluster counts differ: %d vs %d", len(first.Clusters), len(second.Clusters))
	}
	for i := range first.Clusters {
		if first.Clusters[i].ID != second.Clusters[i].ID ||
			len(first.Clusters[i].Anomalies) != len(second.Clusters[i].Anomalies) {
			t.Fatalf("cluster %d differs across runs", i)
		}
	}
	for i := range first.Recommendations {
		if first.Recommendations[i].Category != second.Recommendations[i].Category ||
			first.Recommendations[i].Confidence != second.Recommendations[i].Confidence {
			t.Fatalf("recommendation %d differs across runs", i)
		}
	}
}
