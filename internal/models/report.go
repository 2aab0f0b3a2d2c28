package models

import "time"

// AnalysisReport summarises one pipeline run.
type AnalysisReport struct {
	RunID           string               `json:"run_id"`
	Recommendations []Recommendation     `json:"recommendations"`
	Clusters        []CorrelationCluster `json:"clusters"`
	Summary         AnalysisSummary      `json:"summary"`
	SkippedMetrics  int                  `json:"skipped_metrics"`
	SkippedLogs     int                  `json:"skipped_logs"`
	WindowStart     time.Time            `json:"window_start"`
	WindowEnd       time.Time            `json:"window_end"`
	CreatedAt       time.Time            `json:"created_at"`
}

// AnalysisSummary carries aggregate statistics for reporting.
type AnalysisSummary struct {
	TotalMetrics          int            `json:"total_metrics"`
	TotalLogs             int            `json:"total_logs"`
	TotalAnomalies        int            `json:"total_anomalies"`
	TotalClusters         int            `json:"total_clusters"`
	SourcesAffected       []string       `json:"sources_affected"`
	AnomaliesBySource     map[string]int `json:"anomalies_by_source"`
	AnomaliesByMetric     map[string]int `json:"anomalies_by_metric"`
	ClustersByCategory    map[string]int `json:"clusters_by_category"`
	MostProblematicSource string         `json:"most_problematic_source,omitempty"`
}
