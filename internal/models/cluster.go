package models

import "time"

// CorrelationCluster groups anomalies with temporally proximate log records.
// Immutable after construction. Members are ordered by timestamp; every
// member timestamp falls within [WindowStart, WindowEnd], and consecutive
// members are never further apart than the configured correlation window.
type CorrelationCluster struct {
	ID          string          `json:"id"`
	Anomalies   []AnomalyRecord `json:"anomalies"`
	Logs        []LogRecord     `json:"logs"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
}

// Size returns the total member count.
func (c CorrelationCluster) Size() int {
	return len(c.Anomalies) + len(c.Logs)
}

// Sources returns the distinct source ids across all members, in first-seen order.
func (c CorrelationCluster) Sources() []string {
	seen := make(map[string]struct{}, len(c.Anomalies)+len(c.Logs))
	sources := make([]string, 0, 4)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		sources = append(sources, id)
	}
	for _, a := range c.Anomalies {
		add(a.SourceID)
	}
	for _, l := range c.Logs {
		add(l.SourceID)
	}
	return sources
}
