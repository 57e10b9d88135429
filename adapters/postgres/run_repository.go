package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/core"
	"crisiswatch/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

// EnsureSchema creates the runs table if it does not exist
func (r *RunRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS crisis_runs (
			run_id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			status TEXT NOT NULL,
			alert_level TEXT NOT NULL DEFAULT '',
			total_value_at_risk DOUBLE PRECISION NOT NULL DEFAULT 0,
			invoice JSONB,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create crisis_runs table: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_crisis_runs_customer
		ON crisis_runs (customer_id, started_at DESC)`)
	return err
}

// SaveRun upserts the summary row for one run
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	var invoiceJSON interface{}
	if rec.Invoice != nil {
		data, err := json.Marshal(rec.Invoice)
		if err != nil {
			return fmt.Errorf("failed to encode invoice: %w", err)
		}
		invoiceJSON = data
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crisis_runs (run_id, customer_id, subject, status, alert_level, total_value_at_risk, invoice, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			alert_level = EXCLUDED.alert_level,
			total_value_at_risk = EXCLUDED.total_value_at_risk,
			invoice = EXCLUDED.invoice,
			finished_at = EXCLUDED.finished_at
	`, rec.RunID, rec.CustomerID, rec.Subject, rec.Status, rec.AlertLevel, rec.TotalValueAtRisk, invoiceJSON, rec.StartedAt, rec.FinishedAt)
	return err
}

// GetRun retrieves one run summary by its ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*ports.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, customer_id, subject, status, alert_level, total_value_at_risk, invoice, started_at, finished_at
		FROM crisis_runs
		WHERE run_id = $1
	`, runID)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns the most recent run summaries, optionally limited
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	query := `
		SELECT run_id, customer_id, subject, status, alert_level, total_value_at_risk, invoice, started_at, finished_at
		FROM crisis_runs
		ORDER BY started_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ports.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*ports.RunRecord, error) {
	var rec ports.RunRecord
	var invoiceJSON []byte
	err := row.Scan(
		&rec.RunID,
		&rec.CustomerID,
		&rec.Subject,
		&rec.Status,
		&rec.AlertLevel,
		&rec.TotalValueAtRisk,
		&invoiceJSON,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(invoiceJSON) > 0 {
		var inv billing.Invoice
		if err := json.Unmarshal(invoiceJSON, &inv); err != nil {
			return nil, fmt.Errorf("failed to decode invoice for run %s: %w", rec.RunID, err)
		}
		rec.Invoice = &inv
	}
	return &rec, nil
}
