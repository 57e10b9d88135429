package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"crisiswatch/domain/core"
	"crisiswatch/domain/scoring"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
	"crisiswatch/ports"
)

// scoringWorkers bounds the concurrent per-item enrichment calls
const scoringWorkers = 5

// ScoringStage is stage 3: converts the collection stage's qualitative
// scores into financial metrics. Each item gets a derived RiskProfile
// copy (reach, churn risk, value at risk); the original items are never
// mutated, so collection ordering stays reconstructible. Profiles in the
// same event cluster are deduplication-weighted before the run-level
// total is summed.
type ScoringStage struct {
	completions ports.CompleterFactory
	creds       ports.CredentialPool
	tables      Tables
}

// NewScoringStage wires stage 3
func NewScoringStage(completions ports.CompleterFactory, creds ports.CredentialPool, tables Tables) *ScoringStage {
	return &ScoringStage{
		completions: completions,
		creds:       creds,
		tables:      tables,
	}
}

func (s *ScoringStage) Name() string { return StageScoring }

func (s *ScoringStage) Inputs() []state.Key {
	return []state.Key{state.KeySignalItems}
}

func (s *ScoringStage) Outputs() []state.Key {
	return []state.Key{state.KeyRiskScores, state.KeyTotalValueAtRisk, state.KeyMaxSeverity, state.KeyScoringCost}
}

func (s *ScoringStage) Timeout() time.Duration { return 120 * time.Second }

func (s *ScoringStage) MaxRetries() int { return 0 }

// viralClassification is the per-item response schema
type viralClassification struct {
	ViralCoefficient float64 `json:"viral_coefficient"`
}

func (s *ScoringStage) Run(ctx context.Context, acc *state.Access) error {
	items, err := state.Get[[]signal.Item](acc, state.KeySignalItems)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: scoring requires at least one signal item", core.ErrNoUsableItems)
	}

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire credential: %v", core.ErrExternalService, err)
	}
	defer s.creds.Release(cred)
	llm := s.completions.WithCredential(cred)

	t0 := time.Now()
	profiles, calls := s.enrichAll(ctx, llm, items)
	log.Printf("[Scoring] Parallel enrichment: %.1fs (%d/%d items)", time.Since(t0).Seconds(), len(profiles), len(items))

	if len(profiles) == 0 {
		return fmt.Errorf("%w: all %d items failed enrichment", core.ErrNoUsableItems, len(items))
	}

	totalVaR := scoring.ApplyDedupWeights(profiles)
	maxSeverity := 0
	for _, p := range profiles {
		if p.Item.Severity > maxSeverity {
			maxSeverity = p.Item.Severity
		}
	}
	log.Printf("[Scoring] Total VaR: EUR %.2f | max severity %d/5", totalVaR, maxSeverity)

	if err := acc.Set(state.KeyRiskScores, profiles); err != nil {
		return err
	}
	if err := acc.Set(state.KeyTotalValueAtRisk, totalVaR); err != nil {
		return err
	}
	if err := acc.Set(state.KeyMaxSeverity, maxSeverity); err != nil {
		return err
	}
	return acc.Set(state.KeyScoringCost, completionCost(calls))
}

// enrichAll runs per-item enrichment under a weighted semaphore so at
// most scoringWorkers completion calls are in flight. Item-level
// failures drop the item; output preserves input order.
func (s *ScoringStage) enrichAll(ctx context.Context, llm ports.Completer, items []signal.Item) ([]signal.RiskProfile, int) {
	sem := semaphore.NewWeighted(scoringWorkers)
	results := make([]*signal.RiskProfile, len(items))
	calls := 0

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, item signal.Item) {
			defer wg.Done()
			defer sem.Release(1)
			profile, err := s.enrichItem(ctx, llm, item)
			mu.Lock()
			calls++
			mu.Unlock()
			if err != nil {
				log.Printf("[Scoring] Dropping %q: %v", clip(item.Title, 60), err)
				return
			}
			results[i] = profile
			log.Printf("[Scoring] %q: reach=%.0f VaR=EUR %.2f", clip(item.Title, 50), profile.ReachEstimate, profile.ValueAtRisk)
		}(i, item)
	}
	wg.Wait()

	profiles := make([]signal.RiskProfile, 0, len(items))
	for _, p := range results {
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, calls
}

func (s *ScoringStage) enrichItem(ctx context.Context, llm ports.Completer, item signal.Item) (*signal.RiskProfile, error) {
	viral := 1.2 // plain factual info when classification is unavailable
	var classified viralClassification
	req := ports.CompletionRequest{
		System: analystSystem,
		Prompt: viralClassificationPrompt(item.Title, item.Content),
	}
	if err := llm.Complete(ctx, req, &classified); err != nil {
		log.Printf("[Scoring] Viral classification failed for %q, using default: %v", clip(item.Title, 50), err)
	} else {
		viral = scoring.SnapViralCoefficient(classified.ViralCoefficient)
	}

	topicWeight := s.tables.Topics.Weight(item.Category)

	reach, err := scoring.ReachEstimate(item.Authority, item.Severity, viral)
	if err != nil {
		return nil, err
	}
	churn, err := scoring.ChurnRiskPercent(item.Severity, topicWeight)
	if err != nil {
		return nil, err
	}
	valueAtRisk, err := scoring.ValueAtRisk(reach, s.tables.CAC, churn, s.tables.TotalCustomers, s.tables.ARR)
	if err != nil {
		return nil, err
	}

	return &signal.RiskProfile{
		Item:             item,
		TopicWeight:      topicWeight,
		ViralCoefficient: viral,
		ReachEstimate:    reach,
		ChurnRiskPercent: churn,
		ValueAtRisk:      valueAtRisk,
	}, nil
}
