package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

// Rule maps a cluster-feature predicate onto a root-cause category. Rules are
// evaluated in table order and the first match wins, which keeps the output
// deterministic and auditable. The rationale may use the {source}, {metric}
// and {severity} placeholders.
type Rule struct {
	ID        string          `yaml:"id"`
	Match     RuleMatch       `yaml:"match"`
	Category  models.Category `yaml:"category"`
	Rationale string          `yaml:"rationale"`
}

// RuleMatch defines optional predicate attributes. Empty attributes match
// everything.
type RuleMatch struct {
	MetricContains []string `yaml:"metric_contains"`
	Severity       string   `yaml:"severity"`
	SourceID       string   `yaml:"source_id"`
	MinSources     int      `yaml:"min_sources"`
}

// KnowledgeTable is the ordered rule set consumed by the recommender. It is
// read-only after loading.
type KnowledgeTable struct {
	Rules []Rule `yaml:"rules"`
}

// LoadKnowledgeTable reads a rule pack from YAML. A missing file yields an
// empty table, which the engine reports as EmptyKnowledgeTable at
// recommendation time; malformed rules are configuration errors.
func LoadKnowledgeTable(path string) (KnowledgeTable, error) {
	if path == "" {
		return KnowledgeTable{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return KnowledgeTable{}, nil
		}
		return KnowledgeTable{}, fmt.Errorf("read knowledge table: %w", err)
	}
	var table KnowledgeTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return KnowledgeTable{}, fmt.Errorf("parse knowledge table: %w", err)
	}
	for i, rule := range table.Rules {
		switch rule.Category {
		case models.CategoryAPI, models.CategoryDatabase, models.CategoryNetwork, models.CategoryResource, models.CategoryUnknown:
		default:
			return KnowledgeTable{}, utils.InvalidConfig("engine.LoadKnowledgeTable", fmt.Sprintf("rule %d: unknown category %q", i, rule.Category))
		}
		if rule.Rationale == "" {
			return KnowledgeTable{}, utils.InvalidConfig("engine.LoadKnowledgeTable", fmt.Sprintf("rule %d: rationale is required", i))
		}
	}
	return table, nil
}

// RootCauseEngine scores clusters against the knowledge table. The interface
// (clusters in, one recommendation per cluster out) stays stable regardless
// of the decision method, so a learned scorer can replace it wholesale.
type RootCauseEngine struct {
	table  KnowledgeTable
	logger *slog.Logger
}

// NewRootCauseEngine constructs the rule-based recommender.
func NewRootCauseEngine(table KnowledgeTable, logger *slog.Logger) *RootCauseEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootCauseEngine{table: table, logger: logger}
}

// Recommend emits exactly one Recommendation per cluster, in cluster order.
// With an empty table every cluster yields the unknown category and the
// EmptyKnowledgeTable sentinel is returned alongside the degraded output.
func (e *RootCauseEngine) Recommend(clusters []models.CorrelationCluster) ([]models.Recommendation, error) {
	recommendations := make([]models.Recommendation, 0, len(clusters))
	for _, cluster := range clusters {
		recommendations = append(recommendations, e.recommendOne(cluster))
	}
	if len(e.table.Rules) == 0 {
		return recommendations, utils.ErrEmptyKnowledgeTable
	}
	return recommendations, nil
}

func (e *RootCauseEngine) recommendOne(cluster models.CorrelationCluster) models.Recommendation {
	features := extractFeatures(cluster)
	for _, rule := range e.table.Rules {
		if !ruleMatches(rule.Match, features) {
			continue
		}
		confidence := predicateConsistency(rule.Match, cluster)
		e.logger.Debug("rule matched",
			slog.String("cluster_id", cluster.ID),
			slog.String("rule_id", rule.ID),
			slog.Float64("confidence", confidence),
		)
		return models.Recommendation{
			ClusterID:  cluster.ID,
			Category:   rule.Category,
			Rationale:  expandRationale(rule.Rationale, features),
			Confidence: confidence,
			RuleID:     rule.ID,
		}
	}
	return models.Recommendation{
		ClusterID: cluster.ID,
		Category:  models.CategoryUnknown,
		Rationale: "no matching pattern",
	}
}

// clusterFeatures are the signals rules match against.
type clusterFeatures struct {
	dominantMetric string
	dominantSource string
	topSeverity    models.Severity
	severities     map[models.Severity]bool
	metrics        []string
	sourceCount    int
}

func extractFeatures(cluster models.CorrelationCluster) clusterFeatures {
	features := clusterFeatures{severities: make(map[models.Severity]bool)}

	metricCounts := make(map[string]int)
	sourceCounts := make(map[string]int)
	for _, anomaly := range cluster.Anomalies {
		metricCounts[anomaly.MetricName]++
		sourceCounts[anomaly.SourceID]++
		features.metrics = append(features.metrics, anomaly.MetricName)
	}
	for _, entry := range cluster.Logs {
		features.severities[entry.Severity] = true
		sourceCounts[entry.SourceID]++
	}

	features.dominantMetric = dominantKey(metricCounts)
	features.dominantSource = dominantKey(sourceCounts)
	features.sourceCount = len(sourceCounts)
	features.topSeverity = topSeverity(features.severities)
	return features
}

// dominantKey picks the most frequent key, breaking ties lexicographically.
func dominantKey(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	best, bestCount := "", 0
	for _, key := range keys {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best
}

var severityOrder = []models.Severity{
	models.SeverityCritical,
	models.SeverityError,
	models.SeverityWarn,
	models.SeverityInfo,
}

func topSeverity(present map[models.Severity]bool) models.Severity {
	for _, sev := range severityOrder {
		if present[sev] {
			return sev
		}
	}
	return ""
}

func ruleMatches(match RuleMatch, features clusterFeatures) bool {
	if len(match.MetricContains) > 0 && !metricsContain(features.metrics, match.MetricContains) {
		return false
	}
	if match.Severity != "" && !features.severities[models.Severity(strings.ToLower(match.Severity))] {
		return false
	}
	if match.SourceID != "" && !strings.EqualFold(match.SourceID, features.dominantSource) {
		return false
	}
	if match.MinSources > 0 && features.sourceCount < match.MinSources {
		return false
	}
	return true
}

func metricsContain(metrics []string, keywords []string) bool {
	for _, metric := range metrics {
		lower := strings.ToLower(metric)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// predicateConsistency is the fraction of cluster members consistent with the
// matched predicate: anomalies are checked against the metric and source
// constraints, logs against the severity and source constraints. Unset
// constraints are consistent with every member.
func predicateConsistency(match RuleMatch, cluster models.CorrelationCluster) float64 {
	total := cluster.Size()
	if total == 0 {
		return 0
	}
	consistent := 0
	for _, anomaly := range cluster.Anomalies {
		if len(match.MetricContains) > 0 && !metricsContain([]string{anomaly.MetricName}, match.MetricContains) {
			continue
		}
		if match.SourceID != "" && !strings.EqualFold(match.SourceID, anomaly.SourceID) {
			continue
		}
		consistent++
	}
	for _, entry := range cluster.Logs {
		if match.Severity != "" && !strings.EqualFold(match.Severity, string(entry.Severity)) {
			continue
		}
		if match.SourceID != "" && !strings.EqualFold(match.SourceID, entry.SourceID) {
			continue
		}
		consistent++
	}
	return float64(consistent) / float64(total)
}

func expandRationale(template string, features clusterFeatures) string {
	replacer := strings.NewReplacer(
		"{source}", features.dominantSource,
		"{metric}", features.dominantMetric,
		"{severity}", string(features.topSeverity),
	)
	return replacer.Replace(template)
}
