package app

import (
	"context"
	"log"
	"time"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/state"
	"crisiswatch/domain/strategy"
)

// BillingStage is stage 5: a deterministic aggregator over the upstream
// outputs. No external calls, no timeout, no retries.
type BillingStage struct{}

func NewBillingStage() *BillingStage { return &BillingStage{} }

func (s *BillingStage) Name() string { return StageBilling }

func (s *BillingStage) Inputs() []state.Key {
	return []state.Key{
		state.KeyPrecedentCases,
		state.KeyTotalValueAtRisk,
		state.KeyStrategyReport,
		state.KeyResearchCost,
		state.KeyScoringCost,
		state.KeyStrategyCost,
	}
}

func (s *BillingStage) Outputs() []state.Key {
	return []state.Key{state.KeyInvoice, state.KeyStageCosts}
}

func (s *BillingStage) Timeout() time.Duration { return 0 }

func (s *BillingStage) MaxRetries() int { return 0 }

func (s *BillingStage) Run(ctx context.Context, acc *state.Access) error {
	cases, err := state.Get[[]precedent.Case](acc, state.KeyPrecedentCases)
	if err != nil {
		return err
	}
	totalVaR, err := state.Get[float64](acc, state.KeyTotalValueAtRisk)
	if err != nil {
		return err
	}
	report, err := state.Get[strategy.Report](acc, state.KeyStrategyReport)
	if err != nil {
		return err
	}
	researchCost, err := state.Get[float64](acc, state.KeyResearchCost)
	if err != nil {
		return err
	}
	scoringCost, err := state.Get[float64](acc, state.KeyScoringCost)
	if err != nil {
		return err
	}
	strategyCost, err := state.Get[float64](acc, state.KeyStrategyCost)
	if err != nil {
		return err
	}

	costs := billing.Costs{
		Research: researchCost,
		Scoring:  scoringCost,
		Strategy: strategyCost,
	}
	invoice := billing.Build(costs, len(cases), totalVaR, report.AlertLevel)
	if invoice.ActionRefused {
		log.Printf("[Billing] Action refused at alert %s | compute EUR %.4f on record",
			report.AlertLevel, invoice.TotalAPICost)
	} else {
		log.Printf("[Billing] %d line items | EUR %.2f human-equivalent | ROI x%.0f",
			len(invoice.LineItems), invoice.TotalHumanEquivalent, invoice.ROIMultiplier)
	}

	if err := acc.Set(state.KeyStageCosts, costs); err != nil {
		return err
	}
	return acc.Set(state.KeyInvoice, invoice)
}
