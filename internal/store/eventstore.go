package store

import (
	"sort"

	"github.com/warroomstack/warroom-rca/internal/models"
)

// SeriesKey identifies one metric time series.
type SeriesKey struct {
	SourceID   string
	MetricName string
}

// EventStore holds the normalized metric points and log records for the
// lifetime of one analysis run. Records are validated on ingest; malformed
// ones are skipped and counted so a bad record never sinks the batch.
// Downstream stages reference events by identifier, never by ownership.
type EventStore struct {
	series         map[SeriesKey][]models.MetricPoint
	logs           []models.LogRecord
	totalMetrics   int
	skippedMetrics int
	skippedLogs    int
}

// New creates an empty EventStore.
func New() *EventStore {
	return &EventStore{series: make(map[SeriesKey][]models.MetricPoint)}
}

// FromBatch normalizes a raw batch into a populated store.
func FromBatch(batch models.Batch) *EventStore {
	s := New()
	s.AddMetrics(batch.Metrics...)
	s.AddLogs(batch.Logs...)
	return s
}

// AddMetrics ingests metric points, skipping malformed ones.
func (s *EventStore) AddMetrics(points ...models.MetricPoint) {
	for _, p := range points {
		if p.Timestamp.IsZero() || p.SourceID == "" || p.MetricName == "" {
			s.skippedMetrics++
			continue
		}
		key := SeriesKey{SourceID: p.SourceID, MetricName: p.MetricName}
		s.series[key] = append(s.series[key], p)
		s.totalMetrics++
	}
}

// AddLogs ingests log records, skipping malformed ones. Unrecognised severity
// strings count as malformed; an empty severity defaults to info.
func (s *EventStore) AddLogs(records ...models.LogRecord) {
	for _, r := range records {
		if r.Timestamp.IsZero() || r.SourceID == "" {
			s.skippedLogs++
			continue
		}
		if r.Severity == "" {
			r.Severity = models.SeverityInfo
		} else if sev, ok := models.ParseSeverity(string(r.Severity)); ok {
			r.Severity = sev
		} else {
			s.skippedLogs++
			continue
		}
		s.logs = append(s.logs, r)
	}
}

// SeriesKeys returns the keys of all ingested series in deterministic order.
func (s *EventStore) SeriesKeys() []SeriesKey {
	keys := make([]SeriesKey, 0, len(s.series))
	for key := range s.series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SourceID != keys[j].SourceID {
			return keys[i].SourceID < keys[j].SourceID
		}
		return keys[i].MetricName < keys[j].MetricName
	})
	return keys
}

// Series returns the points of one series ordered by timestamp. The returned
// slice is a copy so callers cannot mutate stored data.
func (s *EventStore) Series(key SeriesKey) []models.MetricPoint {
	points := s.series[key]
	if len(points) == 0 {
		return nil
	}
	out := append([]models.MetricPoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Logs returns all valid log records ordered by timestamp.
func (s *EventStore) Logs() []models.LogRecord {
	out := append([]models.LogRecord(nil), s.logs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// MetricCount returns the number of valid metric points ingested.
func (s *EventStore) MetricCount() int { return s.totalMetrics }

// LogCount returns the number of valid log records ingested.
func (s *EventStore) LogCount() int { return len(s.logs) }

// Skipped reports how many metric points and log records were dropped as
// malformed.
func (s *EventStore) Skipped() (metrics, logs int) {
	return s.skippedMetrics, s.skippedLogs
}
