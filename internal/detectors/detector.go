// Package detectors implements the anomaly detection strategies. Every
// detector is a pure function of its input series and configuration: for a
// fixed input the output is identical across runs, which keeps pipeline
// results reproducible and lets a learned scorer replace any variant behind
// the same contract.
package detectors

import (
	"fmt"

	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// Detector classifies points of a single ordered metric series.
type Detector interface {
	Kind() models.DetectorKind
	Detect(series []models.MetricPoint) []models.AnomalyRecord
}

// ScorerFunc adapts an externally supplied scorer (for example an ML model
// client) to the Detector interface.
type ScorerFunc func(series []models.MetricPoint) []models.AnomalyRecord

// Detect implements Detector.
func (f ScorerFunc) Detect(series []models.MetricPoint) []models.AnomalyRecord {
	return f(series)
}

// Kind implements Detector.
func (f ScorerFunc) Kind() models.DetectorKind { return models.DetectorExternal }

// FromConfig builds the configured detector variant. The composite kind votes
// across the threshold and statistical detectors.
func FromConfig(cfg config.DetectorConfig) (Detector, error) {
	switch cfg.Kind {
	case "threshold":
		return NewThresholdDetector(cfg.Threshold)
	case "statistical":
		return NewStatisticalDetector(cfg.Statistical.Window, cfg.Statistical.Sigma)
	case "composite":
		threshold, err := NewThresholdDetector(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		statistical, err := NewStatisticalDetector(cfg.Statistical.Window, cfg.Statistical.Sigma)
		if err != nil {
			return nil, err
		}
		return NewCompositeDetector(threshold, statistical)
	default:
		return nil, utils.InvalidConfig("detectors.FromConfig", fmt.Sprintf("unknown detector kind %q", cfg.Kind))
	}
}
