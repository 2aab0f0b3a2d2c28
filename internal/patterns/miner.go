package patterns

import (
	"log/slog"
	"sort"
	"time"

	"github.com/warroomstack/warroom-rca/internal/models"
)

// Miner mines frequency-based hotspot patterns from stored analysis reports:
// sources that repeatedly dominate root-cause output, with the categories and
// metrics they keep triggering.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine aggregates reports into per-source patterns ordered by prevalence.
func (m *Miner) Mine(reports []models.AnalysisReport) []models.HotspotPattern {
	if len(reports) == 0 {
		return nil
	}

	stats := make(map[string]*sourceAggregate)
	for _, report := range reports {
		recsByCluster := make(map[string]models.Recommendation, len(report.Recommendations))
		for _, rec := range report.Recommendations {
			recsByCluster[rec.ClusterID] = rec
		}

		seen := make(map[string]struct{})
		for _, cluster := range report.Clusters {
			for _, anomaly := range cluster.Anomalies {
				source := anomaly.SourceID
				if source == "" {
					source = "unknown"
				}
				agg := ensureAggregate(stats, source)
				agg.anomalies++
				agg.metricCounts[anomaly.MetricName]++
				if rec, ok := recsByCluster[cluster.ID]; ok {
					agg.categoryCounts[rec.Category]++
				}
				if report.CreatedAt.After(agg.lastSeen) {
					agg.lastSeen = report.CreatedAt
				}
				seen[source] = struct{}{}
			}
		}
		for source := range seen {
			stats[source].reports++
		}
	}

	mined := make([]models.HotspotPattern, 0, len(stats))
	for source, agg := range stats {
		pattern := models.HotspotPattern{
			ID:         "hotspot-" + source,
			SourceID:   source,
			Category:   agg.topCategory(),
			Metrics:    agg.topMetrics(3),
			Prevalence: float64(agg.reports) / float64(len(reports)),
			Anomalies:  agg.anomalies,
			LastSeen:   agg.lastSeen,
		}
		mined = append(mined, pattern)
	}

	sort.Slice(mined, func(i, j int) bool {
		if mined[i].Prevalence != mined[j].Prevalence {
			return mined[i].Prevalence > mined[j].Prevalence
		}
		return mined[i].SourceID < mined[j].SourceID
	})

	m.logger.Debug("mined hotspot patterns", slog.Int("patterns", len(mined)), slog.Int("reports", len(reports)))
	return mined
}

type sourceAggregate struct {
	reports        int
	anomalies      int
	lastSeen       time.Time
	metricCounts   map[string]int
	categoryCounts map[models.Category]int
}

func ensureAggregate(stats map[string]*sourceAggregate, source string) *sourceAggregate {
	if source == "" {
		source = "unknown"
	}
	agg, ok := stats[source]
	if !ok {
		agg = &sourceAggregate{
			metricCounts:   make(map[string]int),
			categoryCounts: make(map[models.Category]int),
		}
		stats[source] = agg
	}
	return agg
}

func (agg *sourceAggregate) topCategory() models.Category {
	categories := make([]models.Category, 0, len(agg.categoryCounts))
	for category := range agg.categoryCounts {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	best, bestCount := models.CategoryUnknown, 0
	for _, category := range categories {
		if agg.categoryCounts[category] > bestCount {
			best, bestCount = category, agg.categoryCounts[category]
		}
	}
	return best
}

func (agg *sourceAggregate) topMetrics(limit int) []string {
	metrics := make([]string, 0, len(agg.metricCounts))
	for metric := range agg.metricCounts {
		metrics = append(metrics, metric)
	}
	sort.Slice(metrics, func(i, j int) bool {
		if agg.metricCounts[metrics[i]] != agg.metricCounts[metrics[j]] {
			return agg.metricCounts[metrics[i]] > agg.metricCounts[metrics[j]]
		}
		return metrics[i] < metrics[j]
	})
	if len(metrics) > limit {
		metrics = metrics[:limit]
	}
	return metrics
}
