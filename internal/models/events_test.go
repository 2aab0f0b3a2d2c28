package models

import (
	"testing"
	"time"
)

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want Severity
		ok   bool
	}{
		{"info", SeverityInfo, true},
		{"INFO", SeverityInfo, true},
		{"WARNING", SeverityWarn, true},
		{"warn", SeverityWarn, true},
		{"Error", SeverityError, true},
		{"FATAL", SeverityCritical, true},
		{"critical", SeverityCritical, true},
		{"shouting", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseSeverity(%q) = %q/%v, want %q/%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClusterSizeAndSources(t *testing.T) {
	ts := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	cluster := CorrelationCluster{
		Anomalies: []AnomalyRecord{
			{SourceID: "api", MetricName: "latency_ms", Timestamp: ts},
			{SourceID: "db", MetricName: "cpu_pct", Timestamp: ts},
			{SourceID: "api", MetricName: "error_rate", Timestamp: ts},
		},
		Logs: []LogRecord{
			{SourceID: "cache", Timestamp: ts, Severity: SeverityWarn},
			{SourceID: "db", Timestamp: ts, Severity: SeverityError},
		},
	}

	if got := cluster.Size(); got != 5 {
		t.Fatalf("size = %d, want 5", got)
	}

	sources := cluster.Sources()
	want := []string{"api", "db", "cache"}
	if len(sources) != len(want) {
		t.Fatalf("sources = %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Fatalf("sources[%d] = %q, want %q", i, sources[i], want[i])
		}
	}
}
