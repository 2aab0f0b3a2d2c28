package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/warroomstack/warroom-rca/internal/models"
)

type sqliteStore struct {
	baseStore
}

// NewSQLite opens a sqlite-backed report store.
func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:warroom-rca.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			skipped_metrics INTEGER NOT NULL,
			skipped_logs INTEGER NOT NULL,
			payload_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveReport(ctx context.Context, report models.AnalysisReport) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (run_id, created_at, skipped_metrics, skipped_logs, payload_json)
		VALUES (?, ?, ?, ?, ?)`,
		report.RunID,
		report.CreatedAt.UTC(),
		report.SkippedMetrics,
		report.SkippedLogs,
		encodeReport(report),
	)
	return err
}

func (s *sqliteStore) GetReport(ctx context.Context, runID string) (models.AnalysisReport, error) {
	if s.db == nil {
		return models.AnalysisReport{}, ErrNotFound
	}
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM reports WHERE run_id = ?`, runID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnalysisReport{}, ErrNotFound
	}
	if err != nil {
		return models.AnalysisReport{}, err
	}
	return decodeReport(payload)
}

func (s *sqliteStore) ListReports(ctx context.Context, limit int) ([]models.AnalysisReport, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json FROM reports ORDER BY created_at DESC LIMIT ?`, clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	return scanReports(rows)
}
