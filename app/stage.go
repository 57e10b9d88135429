package app

import (
	"context"
	"time"

	"crisiswatch/domain/state"
)

// Stage is the uniform contract every pipeline stage implements.
//
// CONTRACT: a stage reads only its declared input keys and writes only
// its declared output keys, each exactly once. The orchestrator verifies
// before dispatch that every declared input is already present in the
// shared state; a missing input is a graph-construction bug, not a
// runtime condition.
type Stage interface {
	Name() string
	Inputs() []state.Key
	Outputs() []state.Key

	// Timeout bounds one execution attempt; zero means unbounded
	// (only the billing stage, which performs no I/O).
	Timeout() time.Duration

	// MaxRetries is the number of re-attempts after an external service
	// failure. Default is zero: most stages are not idempotent against
	// the same external call budget, so a single failure is terminal
	// for the run.
	MaxRetries() int

	Run(ctx context.Context, acc *state.Access) error
}

// Stage names, also used in observer events and invoice line items
const (
	StageCollection = "collection"
	StageResearch   = "precedent_research"
	StageScoring    = "financial_scoring"
	StageStrategy   = "strategy_synthesis"
	StageBilling    = "billing"
)

// MaxConcurrentStages is the widest point of the stage graph, the
// research/scoring pair. The credential pool must hold at least this many
// handles or the pair serializes on credential acquisition.
const MaxConcurrentStages = 2

// RunState is the orchestrator state machine position for one run
type RunState string

const (
	RunPending      RunState = "PENDING"
	RunCollecting   RunState = "STAGE1_RUNNING"
	RunAnalyzing    RunState = "STAGE2_STAGE3_RUNNING" // concurrent pair
	RunStrategizing RunState = "STAGE4_RUNNING"
	RunBilling      RunState = "STAGE5_RUNNING"
	RunComplete     RunState = "COMPLETE"
	RunFailed       RunState = "FAILED"
)

// Terminal reports whether the state machine has finished
func (s RunState) Terminal() bool {
	return s == RunComplete || s == RunFailed
}
