package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/warroomstack/warroom-rca/internal/models"
)

type postgresStore struct {
	baseStore
}

// NewPostgres opens a postgres-backed report store via the pgx stdlib driver.
func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/warroom_rca?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			skipped_metrics INTEGER NOT NULL,
			skipped_logs INTEGER NOT NULL,
			payload_json JSONB NOT NULL
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

func (s *postgresStore) SaveReport(ctx context.Context, report models.AnalysisReport) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, created_at, skipped_metrics, skipped_logs, payload_json)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET payload_json = EXCLUDED.payload_json`,
		report.RunID,
		report.CreatedAt.UTC(),
		report.SkippedMetrics,
		report.SkippedLogs,
		encodeReport(report),
	)
	return err
}

func (s *postgresStore) GetReport(ctx context.Context, runID string) (models.AnalysisReport, error) {
	if s.db == nil {
		return models.AnalysisReport{}, ErrNotFound
	}
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM reports WHERE run_id = $1`, runID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnalysisReport{}, ErrNotFound
	}
	if err != nil {
		return models.AnalysisReport{}, err
	}
	return decodeReport(payload)
}

func (s *postgresStore) ListReports(ctx context.Context, limit int) ([]models.AnalysisReport, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json FROM reports ORDER BY created_at DESC LIMIT $1`, clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	return scanReports(rows)
}
