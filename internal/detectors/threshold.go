package detectors

import (
	"fmt"

	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// ThresholdDetector flags points that exceed or undercut configured bounds.
// Bounds can be set per metric name with an optional default fallback.
type ThresholdDetector struct {
	def       config.Bound
	perMetric map[string]config.Bound
}

// NewThresholdDetector validates the bounds and constructs the detector.
func NewThresholdDetector(cfg config.ThresholdConfig) (*ThresholdDetector, error) {
	if cfg.DefaultUpper == nil && cfg.DefaultLower == nil && len(cfg.PerMetric) == 0 {
		return nil, utils.InvalidConfig("detectors.NewThresholdDetector", "no threshold bounds configured")
	}
	if cfg.DefaultUpper != nil && cfg.DefaultLower != nil && *cfg.DefaultUpper < *cfg.DefaultLower {
		return nil, utils.InvalidConfig("detectors.NewThresholdDetector", "default upper bound below lower bound")
	}
	for metric, bound := range cfg.PerMetric {
		if bound.Upper != nil && bound.Lower != nil && *bound.Upper < *bound.Lower {
			return nil, utils.InvalidConfig("detectors.NewThresholdDetector", fmt.Sprintf("metric %q upper bound below lower bound", metric))
		}
	}

	perMetric := make(map[string]config.Bound, len(cfg.PerMetric))
	for metric, bound := range cfg.PerMetric {
		perMetric[metric] = bound
	}
	return &ThresholdDetector{
		def:       config.Bound{Upper: cfg.DefaultUpper, Lower: cfg.DefaultLower},
		perMetric: perMetric,
	}, nil
}

// Kind implements Detector.
func (d *ThresholdDetector) Kind() models.DetectorKind { return models.DetectorThreshold }

// Detect flags every point outside its metric's bounds. Metrics with no bound
// configured (and no default) are never flagged.
func (d *ThresholdDetector) Detect(series []models.MetricPoint) []models.AnomalyRecord {
	if len(series) == 0 {
		return nil
	}

	anomalies := make([]models.AnomalyRecord, 0)
	for _, point := range series {
		bound, ok := d.perMetric[point.MetricName]
		if !ok {
			bound = d.def
		}
		crossed, threshold := boundCrossed(point.Value, bound)
		if !crossed {
			continue
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			SourceID:     point.SourceID,
			MetricName:   point.MetricName,
			Timestamp:    point.Timestamp,
			Value:        point.Value,
			Score:        threshold,
			DetectorKind: models.DetectorThreshold,
		})
	}
	return anomalies
}

func boundCrossed(value float64, bound config.Bound) (bool, float64) {
	if bound.Upper != nil && value > *bound.Upper {
		return true, *bound.Upper
	}
	if bound.Lower != nil && value < *bound.Lower {
		return true, *bound.Lower
	}
	return false, 0
}
