package models

// Category enumerates root-cause classifications.
type Category string

const (
	CategoryAPI      Category = "api"
	CategoryDatabase Category = "database"
	CategoryNetwork  Category = "network"
	CategoryResource Category = "resource"
	CategoryUnknown  Category = "unknown"
)

// Recommendation is the ranked root-cause output for a single cluster. It
// references the cluster by id and never owns it.
type Recommendation struct {
	ClusterID  string   `json:"cluster_id"`
	Category   Category `json:"category"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"`
	RuleID     string   `json:"rule_id,omitempty"`
}
