package detectors

import (
	"fmt"
	"math"

	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// StatisticalDetector flags points more than sigma standard deviations from
// the rolling mean of the preceding window points. The rolling computation is
// fully deterministic; there is no sampling or randomness.
type StatisticalDetector struct {
	window int
	sigma  float64
}

// NewStatisticalDetector validates the window and sigma parameters.
func NewStatisticalDetector(window int, sigma float64) (*StatisticalDetector, error) {
	if window < 2 {
		return nil, utils.InvalidConfig("detectors.NewStatisticalDetector", fmt.Sprintf("window must be at least 2, got %d", window))
	}
	if sigma <= 0 {
		return nil, utils.InvalidConfig("detectors.NewStatisticalDetector", fmt.Sprintf("sigma must be positive, got %g", sigma))
	}
	return &StatisticalDetector{window: window, sigma: sigma}, nil
}

// Kind implements Detector.
func (d *StatisticalDetector) Kind() models.DetectorKind { return models.DetectorStatistical }

// Detect scores each point against the rolling mean of the window preceding
// it. Points without a full window of history are declared normal: too little
// data is not a failure.
func (d *StatisticalDetector) Detect(series []models.MetricPoint) []models.AnomalyRecord {
	if len(series) <= d.window {
		return nil
	}

	anomalies := make([]models.AnomalyRecord, 0)
	for i := d.window; i < len(series); i++ {
		mean, stdDev := rollingStats(series[i-d.window : i])
		if stdDev == 0 {
			stdDev = 0.01
		}
		score := math.Abs(series[i].Value-mean) / stdDev
		if score < d.sigma {
			continue
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			SourceID:     series[i].SourceID,
			MetricName:   series[i].MetricName,
			Timestamp:    series[i].Timestamp,
			Value:        series[i].Value,
			Score:        score,
			DetectorKind: models.DetectorStatistical,
		})
	}
	return anomalies
}

func rollingStats(window []models.MetricPoint) (mean, stdDev float64) {
	for _, point := range window {
		mean += point.Value
	}
	mean /= float64(len(window))

	variance := 0.0
	for _, point := range window {
		variance += math.Pow(point.Value-mean, 2)
	}
	variance /= float64(len(window))
	return mean, math.Sqrt(variance)
}
