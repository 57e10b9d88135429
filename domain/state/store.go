package state

import (
	"fmt"
	"sync"

	"crisiswatch/domain/core"
)

// Key addresses one slot of the shared run state. The set of keys is
// fixed: stages declare which of them they read and write, and the store
// enforces those declarations at access time.
type Key string

const (
	KeySubjectName      Key = "subject_name"
	KeyCustomerID       Key = "customer_id"
	KeyRunID            Key = "run_id"
	KeySignalItems      Key = "signal_items"
	KeySignalGroups     Key = "signal_groups"
	KeyPrecedentCases   Key = "precedent_cases"
	KeyGlobalLesson     Key = "global_lesson"
	KeyConfidenceLevel  Key = "confidence_level"
	KeyRiskScores       Key = "risk_scores"
	KeyTotalValueAtRisk Key = "total_value_at_risk"
	KeyMaxSeverity      Key = "max_severity"
	KeyStrategyReport   Key = "strategy_report"
	KeyResearchCost     Key = "research_cost"
	KeyScoringCost      Key = "scoring_cost"
	KeyStrategyCost     Key = "strategy_cost"
	KeyStageCosts       Key = "stage_costs"
	KeyInvoice          Key = "invoice"
)

// Store is the append-only, key-addressed bag of values threaded through
// one pipeline run. Every key is written at most once (single assignment);
// reads and writes go through stage-scoped Access handles that enforce
// declared key sets. Two runs never share a Store.
type Store struct {
	mu     sync.RWMutex
	values map[Key]any
}

// NewStore creates an empty store for one run
func NewStore() *Store {
	return &Store{values: make(map[Key]any)}
}

// Seed populates initial keys before any stage runs. Seeding follows the
// same single-assignment rule as stage writes.
func (s *Store) Seed(values map[Key]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range values {
		if _, exists := s.values[key]; exists {
			return core.NewDuplicateKeyError("seed", string(key))
		}
	}
	for key, value := range values {
		s.values[key] = value
	}
	return nil
}

// Has reports whether a key has been written. Used by the orchestrator to
// validate stage inputs before dispatch.
func (s *Store) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Snapshot returns a copy of the current contents for audit and
// diagnostics. Mutating the returned map does not affect the store.
func (s *Store) Snapshot() map[Key]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[Key]any, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// Access creates a stage-scoped handle restricted to the declared input
// and output key sets.
func (s *Store) Access(stage string, inputs, outputs []Key) *Access {
	return &Access{
		store:  s,
		stage:  stage,
		reads:  keySet(inputs),
		writes: keySet(outputs),
	}
}

func keySet(keys []Key) map[Key]bool {
	set := make(map[Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Access is a stage's view of the store. Reads outside the declared input
// set and writes outside the declared output set are contract violations,
// as are reads of unset keys and second writes to any key.
type Access struct {
	store  *Store
	stage  string
	reads  map[Key]bool
	writes map[Key]bool
}

// Get reads a declared input key. Missing values are contract violations,
// not soft failures.
func (a *Access) Get(key Key) (any, error) {
	if !a.reads[key] {
		return nil, core.NewUndeclaredKeyError(a.stage, string(key), "read")
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	value, ok := a.store.values[key]
	if !ok {
		return nil, core.NewMissingKeyError(a.stage, string(key))
	}
	return value, nil
}

// Set writes a declared output key exactly once
func (a *Access) Set(key Key, value any) error {
	if !a.writes[key] {
		return core.NewUndeclaredKeyError(a.stage, string(key), "wrote")
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, exists := a.store.values[key]; exists {
		return core.NewDuplicateKeyError(a.stage, string(key))
	}
	a.store.values[key] = value
	return nil
}

// Get reads a declared key and asserts its concrete type
func Get[T any](a *Access, key Key) (T, error) {
	var zero T
	value, err := a.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stage %s read %q as %T", core.ErrContractViolation, a.stage, key, zero)
	}
	return typed, nil
}

// Lookup reads from a snapshot with a type assertion; used by callers
// consuming completed or failed runs.
func Lookup[T any](snap map[Key]any, key Key) (T, bool) {
	var zero T
	value, ok := snap[key]
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
