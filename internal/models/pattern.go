package models

import "time"

// HotspotPattern is a mined recurrence template: a source that keeps showing
// up in root-cause output across stored reports.
type HotspotPattern struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	Category   Category  `json:"category"`
	Metrics    []string  `json:"metrics"`
	Prevalence float64   `json:"prevalence"`
	Anomalies  int       `json:"anomalies"`
	LastSeen   time.Time `json:"last_seen"`
}
