package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warroomstack/warroom-rca/internal/detectors"
	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/store"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// Recommender is the stage contract the root-cause engine fulfils; any
// external scorer honoring it can be injected in its place.
type Recommender interface {
	Recommend(clusters []models.CorrelationCluster) ([]models.Recommendation, error)
}

// Pipeline orchestrates detect, correlate and recommend in order. It is
// stateless beyond holding references to its injected stage implementations,
// so any stage can be replaced without touching the others.
type Pipeline struct {
	logger      *slog.Logger
	detector    detectors.Detector
	correlator  *Correlator
	recommender Recommender
}

// NewPipeline constructs a pipeline from its stage implementations.
func NewPipeline(logger *slog.Logger, detector detectors.Detector, correlator *Correlator, recommender Recommender) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		return nil, fmt.Errorf("detector not configured")
	}
	if correlator == nil {
		return nil, fmt.Errorf("correlator not configured")
	}
	if recommender == nil {
		return nil, fmt.Errorf("recommender not configured")
	}
	return &Pipeline{
		logger:      logger,
		detector:    detector,
		correlator:  correlator,
		recommender: recommender,
	}, nil
}

// Run executes one batch analysis. Detection fans out across independent
// series and joins before correlation; the join re-sorts the merged anomalies
// so concurrency never changes the output. The context is consulted between
// stages, letting a caller abandon a run without leaving partial state.
func (p *Pipeline) Run(ctx context.Context, batch models.Batch) (models.AnalysisReport, error) {
	events := store.FromBatch(batch)
	skippedMetrics, skippedLogs := events.Skipped()
	if skippedMetrics > 0 || skippedLogs > 0 {
		p.logger.Warn("skipped malformed records",
			slog.Int("metrics", skippedMetrics),
			slog.Int("logs", skippedLogs),
		)
	}

	anomalies, err := p.detectAll(ctx, events)
	if err != nil {
		return models.AnalysisReport{}, fmt.Errorf("detect: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return models.AnalysisReport{}, err
	}

	clusters := p.correlator.Correlate(anomalies, events.Logs())

	if err := ctx.Err(); err != nil {
		return models.AnalysisReport{}, err
	}

	recommendations, err := p.recommender.Recommend(clusters)
	if err != nil {
		if !errors.Is(err, utils.ErrEmptyKnowledgeTable) {
			return models.AnalysisReport{}, fmt.Errorf("recommend: %w", err)
		}
		// Degraded output (unknown categories) is still a valid result;
		// surface the condition without discarding it.
		p.logger.Warn("recommender degraded", slog.Any("error", err))
	}

	report := models.AnalysisReport{
		RunID:           uuid.NewString(),
		Recommendations: recommendations,
		Clusters:        clusters,
		Summary:         buildSummary(events, anomalies, clusters, recommendations),
		SkippedMetrics:  skippedMetrics,
		SkippedLogs:     skippedLogs,
		CreatedAt:       time.Now().UTC(),
	}
	report.WindowStart, report.WindowEnd = batchBounds(events)

	p.logger.Info("analysis complete",
		slog.String("run_id", report.RunID),
		slog.Int("anomalies", len(anomalies)),
		slog.Int("clusters", len(clusters)),
	)
	return report, nil
}

// detectAll runs the detector over every series concurrently. Each series is
// independent with no shared mutable state; results fan in through a mutex
// and are re-sorted afterwards for determinism.
func (p *Pipeline) detectAll(ctx context.Context, events *store.EventStore) ([]models.AnomalyRecord, error) {
	keys := events.SeriesKeys()
	if len(keys) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	merged := make([]models.AnomalyRecord, 0)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for _, key := range keys {
		key := key
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := p.detector.Detect(events.Series(key))
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			merged = append(merged, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		if merged[i].SourceID != merged[j].SourceID {
			return merged[i].SourceID < merged[j].SourceID
		}
		return merged[i].MetricName < merged[j].MetricName
	})
	return merged, nil
}

func buildSummary(events *store.EventStore, anomalies []models.AnomalyRecord, clusters []models.CorrelationCluster, recommendations []models.Recommendation) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		TotalMetrics:       events.MetricCount(),
		TotalLogs:          events.LogCount(),
		TotalAnomalies:     len(anomalies),
		TotalClusters:      len(clusters),
		AnomaliesBySource:  make(map[string]int),
		AnomaliesByMetric:  make(map[string]int),
		ClustersByCategory: make(map[string]int),
	}

	for _, anomaly := range anomalies {
		summary.AnomaliesBySource[anomaly.SourceID]++
		summary.AnomaliesByMetric[anomaly.MetricName]++
	}
	for _, rec := range recommendations {
		summary.ClustersByCategory[string(rec.Category)]++
	}

	seen := make(map[string]struct{})
	for _, cluster := range clusters {
		for _, src := range cluster.Sources() {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			summary.SourcesAffected = append(summary.SourcesAffected, src)
		}
	}
	sort.Strings(summary.SourcesAffected)

	best, bestCount := "", 0
	sources := make([]string, 0, len(summary.AnomaliesBySource))
	for src := range summary.AnomaliesBySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		if summary.AnomaliesBySource[src] > bestCount {
			best, bestCount = src, summary.AnomaliesBySource[src]
		}
	}
	summary.MostProblematicSource = best
	return summary
}

func batchBounds(events *store.EventStore) (start, end time.Time) {
	consider := func(ts time.Time) {
		if start.IsZero() || ts.Before(start) {
			start = ts
		}
		if end.IsZero() || ts.After(end) {
			end = ts
		}
	}
	for _, key := range events.SeriesKeys() {
		for _, point := range events.Series(key) {
			consider(point.Timestamp)
		}
	}
	for _, entry := range events.Logs() {
		consider(entry.Timestamp)
	}
	return start, end
}
