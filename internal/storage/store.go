package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/warroomstack/warroom-rca/internal/config"
	"github.com/warroomstack/warroom-rca/internal/models"
)

// ErrNotFound signals that a report id has no stored row.
var ErrNotFound = errors.New("report not found")

// Store persists analysis reports for later retrieval and pattern mining.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveReport(ctx context.Context, report models.AnalysisReport) error
	GetReport(ctx context.Context, runID string) (models.AnalysisReport, error)
	ListReports(ctx context.Context, limit int) ([]models.AnalysisReport, error)
}

// NewStore builds the configured driver. Disabled storage yields a nil store
// the service layer tolerates.
func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func encodeReport(report models.AnalysisReport) string {
	data, err := json.Marshal(report)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeReport(payload string) (models.AnalysisReport, error) {
	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return models.AnalysisReport{}, err
	}
	return report, nil
}

func scanReports(rows *sql.Rows) ([]models.AnalysisReport, error) {
	defer rows.Close()
	reports := make([]models.AnalysisReport, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		report, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
