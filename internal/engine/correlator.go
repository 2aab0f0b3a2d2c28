package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// Correlator groups anomaly records with temporally proximate log records
// using a chained window: a cluster absorbs any event within the window of
// its latest member, so the window slides forward as members are added. This
// avoids splitting a single incident whose anomalies drift slowly across a
// fixed boundary; the worst-case cluster timespan stays bounded by the sum of
// sequential gaps.
type Correlator struct {
	window time.Duration
}

// NewCorrelator validates the window. A negative window is a configuration
// error; a zero window yields one singleton cluster per anomaly.
func NewCorrelator(window time.Duration) (*Correlator, error) {
	if window < 0 {
		return nil, utils.InvalidConfig("engine.NewCorrelator", fmt.Sprintf("correlation window must be non-negative, got %s", window))
	}
	return &Correlator{window: window}, nil
}

// Window returns the configured correlation window.
func (c *Correlator) Window() time.Duration { return c.window }

// Correlate builds clusters from the given anomalies and logs. Inputs are
// stably sorted by timestamp then source id, so insertion order breaks full
// ties and the output is identical across runs. Clusters are seeded only by
// anomalies; logs with no anomaly in range are dropped from the clustering
// output. No event ever appears in two clusters.
func (c *Correlator) Correlate(anomalies []models.AnomalyRecord, logs []models.LogRecord) []models.CorrelationCluster {
	if len(anomalies) == 0 {
		return nil
	}

	anoms := append([]models.AnomalyRecord(nil), anomalies...)
	sort.SliceStable(anoms, func(i, j int) bool {
		if !anoms[i].Timestamp.Equal(anoms[j].Timestamp) {
			return anoms[i].Timestamp.Before(anoms[j].Timestamp)
		}
		return anoms[i].SourceID < anoms[j].SourceID
	})

	if c.window == 0 {
		return singletonClusters(anoms)
	}

	entries := append([]models.LogRecord(nil), logs...)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].SourceID < entries[j].SourceID
	})

	clusters := make([]models.CorrelationCluster, 0)
	ai, li := 0, 0
	for ai < len(anoms) {
		seed := anoms[ai]
		ai++

		cluster := models.CorrelationCluster{Anomalies: []models.AnomalyRecord{seed}}
		start := seed.Timestamp
		latest := seed.Timestamp

		// Logs shortly before the seed belong to the same incident; the
		// window is measured as an absolute delta around the seed.
		for li < len(entries) && !entries[li].Timestamp.After(seed.Timestamp) {
			if seed.Timestamp.Sub(entries[li].Timestamp) <= c.window {
				cluster.Logs = append(cluster.Logs, entries[li])
				if entries[li].Timestamp.Before(start) {
					start = entries[li].Timestamp
				}
			}
			li++
		}

		// Chained forward absorption. On equal timestamps anomalies are
		// consumed before logs.
		for ai < len(anoms) || li < len(entries) {
			takeAnomaly := li >= len(entries) ||
				(ai < len(anoms) && !anoms[ai].Timestamp.After(entries[li].Timestamp))
			if takeAnomaly {
				if anoms[ai].Timestamp.Sub(latest) > c.window {
					break
				}
				cluster.Anomalies = append(cluster.Anomalies, anoms[ai])
				latest = anoms[ai].Timestamp
				ai++
				continue
			}
			if entries[li].Timestamp.Sub(latest) > c.window {
				// Out of reach here, but possibly within the lookback
				// window of the next seed. Leave it unconsumed.
				break
			}
			cluster.Logs = append(cluster.Logs, entries[li])
			latest = entries[li].Timestamp
			li++
		}

		cluster.ID = clusterID(len(clusters))
		cluster.WindowStart = start
		cluster.WindowEnd = latest
		clusters = append(clusters, cluster)
	}
	return clusters
}

func singletonClusters(anoms []models.AnomalyRecord) []models.CorrelationCluster {
	clusters := make([]models.CorrelationCluster, 0, len(anoms))
	for _, anomaly := range anoms {
		clusters = append(clusters, models.CorrelationCluster{
			ID:          clusterID(len(clusters)),
			Anomalies:   []models.AnomalyRecord{anomaly},
			WindowStart: anomaly.Timestamp,
			WindowEnd:   anomaly.Timestamp,
		})
	}
	return clusters
}

func clusterID(index int) string {
	return fmt.Sprintf("cluster-%d", index+1)
}
