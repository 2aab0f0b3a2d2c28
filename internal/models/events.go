package models

import "time"

// MetricPoint is a single observation in a metric time series. Points are
// immutable once ingested and ordered by timestamp within a series.
type MetricPoint struct {
	SourceID   string    `json:"source_id"`
	MetricName string    `json:"metric_name"`
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
}

// LogRecord is a normalized log event.
type LogRecord struct {
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// AnomalyRecord marks a metric point flagged by a detector. Produced exactly
// once per detected anomaly and never mutated afterwards.
type AnomalyRecord struct {
	SourceID     string       `json:"source_id"`
	MetricName   string       `json:"metric_name"`
	Timestamp    time.Time    `json:"timestamp"`
	Value        float64      `json:"value"`
	Score        float64      `json:"score"`
	DetectorKind DetectorKind `json:"detector_kind"`
}

// DetectorKind identifies the strategy that produced an anomaly record.
type DetectorKind string

const (
	DetectorThreshold   DetectorKind = "threshold"
	DetectorStatistical DetectorKind = "statistical"
	DetectorComposite   DetectorKind = "composite"
	DetectorExternal    DetectorKind = "external"
)

// Severity captures log impact levels.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps a raw severity string onto the known levels. The second
// return value reports whether the input was recognised.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(normalizeSeverity(raw)) {
	case SeverityInfo:
		return SeverityInfo, true
	case SeverityWarn:
		return SeverityWarn, true
	case SeverityError:
		return SeverityError, true
	case SeverityCritical:
		return SeverityCritical, true
	}
	return "", false
}

func normalizeSeverity(raw string) string {
	switch raw {
	case "INFO", "Info", "info":
		return "info"
	case "WARN", "WARNING", "Warn", "warning", "warn":
		return "warn"
	case "ERROR", "Error", "error":
		return "error"
	case "CRITICAL", "FATAL", "Critical", "fatal", "critical":
		return "critical"
	}
	return raw
}

// Batch is the ingestion boundary payload: a finite collection of raw metric
// points and log records delivered by an external collector.
type Batch struct {
	Metrics []MetricPoint `json:"metrics"`
	Logs    []LogRecord   `json:"logs"`
}
