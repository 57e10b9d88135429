package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/core"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
	"crisiswatch/domain/strategy"
	"crisiswatch/ports"
)

// PipelineRun is one execution of the stage graph for one subject. The
// identifiers are immutable; the store accumulates stage outputs.
type PipelineRun struct {
	ID         core.RunID
	CustomerID core.CustomerID
	Subject    string
	StartedAt  core.Timestamp
	Store      *state.Store

	mu    sync.Mutex
	state RunState
}

// NewPipelineRun creates a run in the PENDING state with a fresh store
func NewPipelineRun(subject string) *PipelineRun {
	return &PipelineRun{
		ID:         core.RunID(core.NewID()),
		CustomerID: core.DeriveCustomerID(subject),
		Subject:    subject,
		StartedAt:  core.Now(),
		Store:      state.NewStore(),
		state:      RunPending,
	}
}

// State returns the current state machine position
func (r *PipelineRun) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *PipelineRun) transition(to RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		// Terminal states are sticky; a late transition is a bug upstream.
		log.Printf("[Orchestrator] Ignoring transition %s -> %s for run %s", r.state, to, r.ID)
		return
	}
	log.Printf("[Orchestrator] Run %s: %s -> %s", r.ID, r.state, to)
	r.state = to
}

// RunResult is what both entry points hand back to the caller: final
// state-machine position plus a snapshot of the shared state. On failure
// the snapshot carries whatever upstream outputs existed; partial data
// is surfaced for diagnostics, never silently replaced with defaults.
type RunResult struct {
	RunID      core.RunID
	CustomerID core.CustomerID
	Subject    string
	State      RunState
	StartedAt  core.Timestamp
	FinishedAt core.Timestamp
	Snapshot   map[state.Key]any
}

// Invoice extracts the billing output if the run got that far
func (r *RunResult) Invoice() (*billing.Invoice, bool) {
	inv, ok := state.Lookup[billing.Invoice](r.Snapshot, state.KeyInvoice)
	if !ok {
		return nil, false
	}
	return &inv, true
}

// StrategyReport extracts the synthesis output if the run got that far
func (r *RunResult) StrategyReport() (*strategy.Report, bool) {
	rep, ok := state.Lookup[strategy.Report](r.Snapshot, state.KeyStrategyReport)
	if !ok {
		return nil, false
	}
	return &rep, true
}

// Service wires the stage graph to its external capabilities and exposes
// the two entry modes.
type Service struct {
	collect  Stage
	research Stage
	scoring  Stage
	strategy Stage
	billing  Stage
	observer ports.RunObserver
	runs     ports.RunRepository // nil disables persistence
}

// NewService assembles the pipeline from its five stages
func NewService(deps Deps) *Service {
	observer := deps.Observer
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &Service{
		collect:  NewCollectStage(deps.Search, deps.Extractor, deps.Completions, deps.Credentials, deps.Tables, deps.SearchRetries),
		research: NewResearchStage(deps.Search, deps.Extractor, deps.Completions, deps.Credentials),
		scoring:  NewScoringStage(deps.Completions, deps.Credentials, deps.Tables),
		strategy: NewStrategyStage(deps.Completions, deps.Credentials),
		billing:  NewBillingStage(),
		observer: observer,
		runs:     deps.Runs,
	}
}

// Deps bundles the service's constructor dependencies
type Deps struct {
	Search      ports.SearchProvider
	Extractor   ports.ContentExtractor
	Completions ports.CompleterFactory
	Credentials ports.CredentialPool
	Tables      Tables
	Observer    ports.RunObserver
	Runs        ports.RunRepository

	// SearchRetries opts the cheap, idempotent collection search into
	// retries; every other stage keeps the zero-retry default.
	SearchRetries int
}

// RunFull executes the whole graph for a subject: collection first, then
// the concurrent research/scoring pair, then synthesis, then billing.
func (s *Service) RunFull(ctx context.Context, subject string) (*RunResult, error) {
	run := NewPipelineRun(subject)
	log.Printf("[Orchestrator] Full run %s started: subject=%q customer=%s", run.ID, subject, run.CustomerID)

	err := run.Store.Seed(map[state.Key]any{
		state.KeySubjectName: subject,
		state.KeyCustomerID:  run.CustomerID,
		state.KeyRunID:       run.ID,
	})
	if err != nil {
		return nil, err
	}

	run.transition(RunCollecting)
	if err := s.execStage(ctx, run, s.collect); err != nil {
		return s.fail(ctx, run, err)
	}

	// A run with nothing to analyze completes early rather than pushing
	// empty data through the model stages.
	snap := run.Store.Snapshot()
	if items, ok := state.Lookup[[]signal.Item](snap, state.KeySignalItems); ok && len(items) == 0 {
		log.Printf("[Orchestrator] Run %s: no signals collected, completing early", run.ID)
		run.transition(RunComplete)
		return s.finish(ctx, run), nil
	}

	return s.runAnalysis(ctx, run)
}

// SeedData is the caller-supplied input for a subset run: one topic's
// already-collected items, bypassing the collection stage.
type SeedData struct {
	Subject      string
	TopicTitle   string
	TopicSummary string
	Items        []signal.Item
}

// RunSubset executes stages {research, scoring} in parallel, then
// synthesis, then billing, against caller-supplied seed data. The stage
// implementations are the very ones the full run uses; only the initial
// state population differs.
func (s *Service) RunSubset(ctx context.Context, seed SeedData) (*RunResult, error) {
	if len(seed.Items) == 0 {
		return nil, core.NewValidationError("seed", "subset run requires at least one signal item")
	}
	run := NewPipelineRun(seed.Subject)
	log.Printf("[Orchestrator] Subset run %s started: subject=%q topic=%q items=%d",
		run.ID, seed.Subject, seed.TopicTitle, len(seed.Items))

	groups := signal.GroupByCategory(seed.Items)
	if seed.TopicTitle != "" && len(groups) > 0 {
		groups[0].Title = seed.TopicTitle
		groups[0].Summary = seed.TopicSummary
	}

	err := run.Store.Seed(map[state.Key]any{
		state.KeySubjectName:  seed.Subject,
		state.KeyCustomerID:   run.CustomerID,
		state.KeyRunID:        run.ID,
		state.KeySignalItems:  seed.Items,
		state.KeySignalGroups: groups,
	})
	if err != nil {
		return nil, err
	}

	return s.runAnalysis(ctx, run)
}

// runAnalysis drives the shared tail of both entry modes: the concurrent
// pair, convergence into synthesis, then billing.
func (s *Service) runAnalysis(ctx context.Context, run *PipelineRun) (*RunResult, error) {
	run.transition(RunAnalyzing)

	// The pair runs to completion independently: no shared cancel, so a
	// failure in one branch never truncates the other's output. Stage 4
	// is dispatched only after BOTH have reached a terminal state.
	var g errgroup.Group
	g.Go(func() error { return s.execStage(ctx, run, s.research) })
	g.Go(func() error { return s.execStage(ctx, run, s.scoring) })
	if err := g.Wait(); err != nil {
		return s.fail(ctx, run, err)
	}

	run.transition(RunStrategizing)
	if err := s.execStage(ctx, run, s.strategy); err != nil {
		return s.fail(ctx, run, err)
	}

	run.transition(RunBilling)
	if err := s.execStage(ctx, run, s.billing); err != nil {
		return s.fail(ctx, run, err)
	}

	run.transition(RunComplete)
	return s.finish(ctx, run), nil
}

// execStage validates the stage's input contract, then runs it under its
// timeout and retry policy.
func (s *Service) execStage(ctx context.Context, run *PipelineRun, stage Stage) error {
	for _, key := range stage.Inputs() {
		if !run.Store.Has(key) {
			return core.NewMissingKeyError(stage.Name(), string(key))
		}
	}

	acc := run.Store.Access(stage.Name(), stage.Inputs(), stage.Outputs())
	s.observer.StageStarted(run.ID, stage.Name())
	started := time.Now()

	var err error
	attempts := stage.MaxRetries() + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.runAttempt(ctx, stage, acc)
		if err == nil {
			break
		}
		if core.IsFatal(err) || !core.IsExternalServiceError(err) {
			break
		}
		if attempt < attempts {
			log.Printf("[Orchestrator] Stage %s attempt %d/%d failed, retrying: %v",
				stage.Name(), attempt, attempts, err)
		}
	}

	elapsed := time.Since(started)
	s.observer.StageFinished(run.ID, stage.Name(), err)
	if err != nil {
		log.Printf("[Orchestrator] Stage %s FAILED after %.1fs: %v", stage.Name(), elapsed.Seconds(), err)
		return fmt.Errorf("stage %s: %w", stage.Name(), err)
	}
	log.Printf("[Orchestrator] Stage %s done in %.1fs", stage.Name(), elapsed.Seconds())
	return nil
}

func (s *Service) runAttempt(ctx context.Context, stage Stage, acc *state.Access) error {
	if timeout := stage.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := stage.Run(ctx, acc)
	if err != nil && ctx.Err() == context.DeadlineExceeded && !core.IsFatal(err) {
		// A timeout is an external failure of the stage's capability
		err = fmt.Errorf("%w: stage timed out: %v", core.ErrExternalService, err)
	}
	return err
}

func (s *Service) finish(ctx context.Context, run *PipelineRun) *RunResult {
	result := s.result(run)
	s.persist(ctx, run, result)
	return result
}

func (s *Service) fail(ctx context.Context, run *PipelineRun, err error) (*RunResult, error) {
	run.transition(RunFailed)
	result := s.result(run)
	s.persist(ctx, run, result)
	// The snapshot carries the last-known-good outputs for diagnostics
	return result, err
}

func (s *Service) result(run *PipelineRun) *RunResult {
	return &RunResult{
		RunID:      run.ID,
		CustomerID: run.CustomerID,
		Subject:    run.Subject,
		State:      run.State(),
		StartedAt:  run.StartedAt,
		FinishedAt: core.Now(),
		Snapshot:   run.Store.Snapshot(),
	}
}

func (s *Service) persist(ctx context.Context, run *PipelineRun, result *RunResult) {
	if s.runs == nil {
		return
	}
	rec := ports.RunRecord{
		RunID:      result.RunID,
		CustomerID: result.CustomerID,
		Subject:    result.Subject,
		Status:     string(result.State),
		StartedAt:  result.StartedAt.Time(),
		FinishedAt: result.FinishedAt.Time(),
	}
	if totalVaR, ok := state.Lookup[float64](result.Snapshot, state.KeyTotalValueAtRisk); ok {
		rec.TotalValueAtRisk = totalVaR
	}
	if report, ok := result.StrategyReport(); ok {
		rec.AlertLevel = report.AlertLevel
	}
	if inv, ok := result.Invoice(); ok {
		rec.Invoice = inv
	}
	if err := s.runs.SaveRun(ctx, rec); err != nil {
		log.Printf("[Orchestrator] Failed to persist run %s: %v", result.RunID, err)
	}
}
