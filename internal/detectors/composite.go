package detectors

import (
	"time"

	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// CompositeDetector combines several detectors by majority vote: a point is
// anomalous when more than half of the children flag it. The emitted record
// carries the highest score among the agreeing children.
type CompositeDetector struct {
	children []Detector
}

// NewCompositeDetector requires at least one child detector.
func NewCompositeDetector(children ...Detector) (*CompositeDetector, error) {
	if len(children) == 0 {
		return nil, utils.InvalidConfig("detectors.NewCompositeDetector", "at least one child detector is required")
	}
	return &CompositeDetector{children: append([]Detector(nil), children...)}, nil
}

// Kind implements Detector.
func (d *CompositeDetector) Kind() models.DetectorKind { return models.DetectorComposite }

type voteKey struct {
	sourceID string
	metric   string
	ts       time.Time
}

// Detect runs every child over the series and reduces by majority vote.
// Output order follows the input series, so the reduction is deterministic.
func (d *CompositeDetector) Detect(series []models.MetricPoint) []models.AnomalyRecord {
	if len(series) == 0 {
		return nil
	}

	votes := make(map[voteKey]int)
	best := make(map[voteKey]models.AnomalyRecord)
	for _, child := range d.children {
		for _, anomaly := range child.Detect(series) {
			key := voteKey{sourceID: anomaly.SourceID, metric: anomaly.MetricName, ts: anomaly.Timestamp}
			votes[key]++
			if current, ok := best[key]; !ok || anomaly.Score > current.Score {
				best[key] = anomaly
			}
		}
	}

	needed := len(d.children)/2 + 1
	anomalies := make([]models.AnomalyRecord, 0, len(best))
	for _, point := range series {
		key := voteKey{sourceID: point.SourceID, metric: point.MetricName, ts: point.Timestamp}
		if votes[key] < needed {
			continue
		}
		record := best[key]
		record.DetectorKind = models.DetectorComposite
		anomalies = append(anomalies, record)
		// A key can repeat if the series carries duplicate timestamps; emit once.
		delete(votes, key)
	}
	return anomalies
}
