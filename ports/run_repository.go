package ports

import (
	"context"
	"time"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/core"
	"crisiswatch/domain/strategy"
)

// RunRecord is the persisted summary of one completed or failed run
type RunRecord struct {
	RunID            core.RunID          `db:"run_id"`
	CustomerID       core.CustomerID     `db:"customer_id"`
	Subject          string              `db:"subject"`
	Status           string              `db:"status"`
	AlertLevel       strategy.AlertLevel `db:"alert_level"`
	TotalValueAtRisk float64             `db:"total_value_at_risk"`
	Invoice          *billing.Invoice    `db:"-"`
	StartedAt        time.Time           `db:"started_at"`
	FinishedAt       time.Time           `db:"finished_at"`
}

// RunRepository persists run summaries for later inspection. Persistence
// is optional at runtime: callers treat a nil repository as disabled.
type RunRepository interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, runID core.RunID) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
