package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/warroomstack/warroom-rca/internal/cache"
	"github.com/warroomstack/warroom-rca/internal/engine"
	"github.com/warroomstack/warroom-rca/internal/metrics"
	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/patterns"
	"github.com/warroomstack/warroom-rca/internal/storage"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// ErrReportNotFound signals an unknown run id.
var ErrReportNotFound = errors.New("report not found")

// AnalysisService is the facade the API handlers call: it runs the pipeline,
// records observability signals, and persists and recalls reports.
type AnalysisService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	history   storage.Store
	cache     cache.Provider
	cacheTTL  time.Duration
	miner     *patterns.Miner
	latencies *utils.LatencyTracker
}

// NewAnalysisService wires the service. history may be nil when persistence
// is disabled; cacheProvider defaults to the noop provider.
func NewAnalysisService(logger *slog.Logger, pipeline *engine.Pipeline, history storage.Store, cacheProvider cache.Provider, cacheTTL time.Duration) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &AnalysisService{
		logger:    logger,
		pipeline:  pipeline,
		history:   history,
		cache:     cacheProvider,
		cacheTTL:  cacheTTL,
		miner:     patterns.NewMiner(logger),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs one batch through the pipeline, persists the report, and
// exposes skipped-record counts through the prometheus collectors.
func (s *AnalysisService) Analyze(ctx context.Context, batch models.Batch) (models.AnalysisReport, error) {
	if s.pipeline == nil {
		return models.AnalysisReport{}, fmt.Errorf("pipeline not configured")
	}

	start := time.Now()
	report, err := s.pipeline.Run(ctx, batch)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		s.logger.Error("pipeline run failed", slog.Any("error", err))
		return models.AnalysisReport{}, err
	}

	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	metrics.AddSkipped("metric", report.SkippedMetrics)
	metrics.AddSkipped("log", report.SkippedLogs)

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	if s.history != nil {
		if err := s.history.SaveReport(ctx, report); err != nil {
			s.logger.Warn("failed to persist report", slog.String("run_id", report.RunID), slog.Any("error", err))
		}
	}
	s.cacheReport(ctx, report)

	return report, nil
}

// GetReport recalls a report by run id, preferring the cache.
func (s *AnalysisService) GetReport(ctx context.Context, runID string) (models.AnalysisReport, error) {
	if payload, err := s.cache.Get(ctx, reportCacheKey(runID)); err == nil {
		var report models.AnalysisReport
		if err := json.Unmarshal(payload, &report); err == nil {
			return report, nil
		}
		// Bad payload; drop it and fall through to storage.
		_ = s.cache.Del(ctx, reportCacheKey(runID))
	}

	if s.history == nil {
		return models.AnalysisReport{}, ErrReportNotFound
	}
	report, err := s.history.GetReport(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.AnalysisReport{}, ErrReportNotFound
	}
	if err != nil {
		return models.AnalysisReport{}, err
	}
	s.cacheReport(ctx, report)
	return report, nil
}

// ListReports returns recent reports, newest first. Disabled storage yields
// an empty list.
func (s *AnalysisService) ListReports(ctx context.Context, limit int) ([]models.AnalysisReport, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListReports(ctx, limit)
}

// Patterns mines hotspot patterns from the stored report history.
func (s *AnalysisService) Patterns(ctx context.Context, limit int) ([]models.HotspotPattern, error) {
	reports, err := s.ListReports(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.miner.Mine(reports), nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) cacheReport(ctx context.Context, report models.AnalysisReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, reportCacheKey(report.RunID), payload, s.cacheTTL); err != nil {
		s.logger.Debug("report cache write failed", slog.Any("error", err))
	}
}

func reportCacheKey(runID string) string {
	return "report:" + runID
}
