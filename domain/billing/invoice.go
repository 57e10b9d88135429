package billing

import (
	"fmt"
	"math"

	"crisiswatch/domain/strategy"
)

// Reference rates for the human-equivalent comparison. These value what a
// traditional agency would charge for the same deliverables; they are not
// the price billed.
const (
	ConsultingHourRate = 150.0  // EUR per analyst hour
	HoursPerCase       = 3.0    // analyst hours per verified precedent case
	BaseAuditFee       = 500.0  // flat base for a financial risk audit
	AuditRiskPercent   = 0.0001 // plus 0.01% of total value at risk
	StrategyFee        = 2500.0 // flat fee for a full response strategy
)

// minComputeCost guards the ROI division: a compute cost that rounds to
// zero yields a very large but finite multiplier, never Inf or NaN.
const minComputeCost = 1e-6

// LineItem is one billable upstream stage on the invoice
type LineItem struct {
	Stage              string  `json:"stage"`
	Event              string  `json:"event"`
	HumanEquivalentEUR float64 `json:"human_equivalent_value_eur"`
	ComputeCostEUR     float64 `json:"api_compute_cost_eur"`
	MarginPercent      float64 `json:"gross_margin_percent"`
	Detail             string  `json:"detail"`
}

// Invoice is the billing stage's rollup for one run
type Invoice struct {
	LineItems            []LineItem `json:"line_items"`
	TotalHumanEquivalent float64    `json:"total_human_equivalent_eur"`
	TotalAPICost         float64    `json:"total_api_cost_eur"`
	TotalMarginPercent   float64    `json:"total_gross_margin_percent"`
	ROIMultiplier        float64    `json:"roi_multiplier"`
	Summary              string     `json:"invoice_summary"`
	ActionRefused        bool       `json:"action_refused"`
	RefusalReason        string     `json:"refusal_reason,omitempty"`
}

// Costs carries the realized per-stage compute spend, in EUR
type Costs struct {
	Research float64 `json:"research"`
	Scoring  float64 `json:"scoring"`
	Strategy float64 `json:"strategy"`
}

// Total sums the realized compute spend
func (c Costs) Total() float64 {
	return round4(c.Research + c.Scoring + c.Strategy)
}

// Build computes the invoice for one run. Purely deterministic: no
// external calls, no failure modes beyond programming errors.
//
// Refusal rule: when the alert level is the lowest tier the line-item
// list is empty and the refusal flag is set, but the already-incurred
// compute cost is still reported. Realized cost is never refunded, the
// aggregator only declines to bill a human-equivalent value.
func Build(costs Costs, casesCount int, totalValueAtRisk float64, alert strategy.AlertLevel) Invoice {
	totalAPI := costs.Total()

	if alert.IsLowest() {
		return Invoice{
			LineItems:     []LineItem{},
			TotalAPICost:  totalAPI,
			ROIMultiplier: 0,
			Summary: fmt.Sprintf(
				"Threat dismissed at alert level %s. Analysis delivered; no response billed.", alert),
			ActionRefused: true,
			RefusalReason: fmt.Sprintf(
				"Alert level is %s: the situation is too minor to warrant an active response. "+
					"Compute cost of EUR %.4f across all stages remains on record.", alert, totalAPI),
		}
	}

	researchValue := round2(float64(casesCount) * HoursPerCase * ConsultingHourRate)
	scoringValue := round2(BaseAuditFee + totalValueAtRisk*AuditRiskPercent)
	strategyValue := StrategyFee

	items := []LineItem{
		{
			Stage:              "precedent_research",
			Event:              "historical_precedents_extracted",
			HumanEquivalentEUR: researchValue,
			ComputeCostEUR:     round4(costs.Research),
			MarginPercent:      marginPercent(researchValue, costs.Research),
			Detail: fmt.Sprintf("%d cases x %.0fh x EUR%.0f/h",
				casesCount, HoursPerCase, ConsultingHourRate),
		},
		{
			Stage:              "financial_scoring",
			Event:              "risk_assessment_completed",
			HumanEquivalentEUR: scoringValue,
			ComputeCostEUR:     round4(costs.Scoring),
			MarginPercent:      marginPercent(scoringValue, costs.Scoring),
			Detail: fmt.Sprintf("EUR%.0f base + %.2f%% of EUR%.0f VaR",
				BaseAuditFee, AuditRiskPercent*100, totalValueAtRisk),
		},
		{
			Stage:              "strategy_synthesis",
			Event:              "crisis_strategy_delivered",
			HumanEquivalentEUR: strategyValue,
			ComputeCostEUR:     round4(costs.Strategy),
			MarginPercent:      marginPercent(strategyValue, costs.Strategy),
			Detail:             "Full response plan with communication drafts",
		},
	}

	totalHuman := round2(researchValue + scoringValue + strategyValue)

	return Invoice{
		LineItems:            items,
		TotalHumanEquivalent: totalHuman,
		TotalAPICost:         totalAPI,
		TotalMarginPercent:   marginPercent(totalHuman, totalAPI),
		ROIMultiplier:        roiMultiplier(totalHuman, totalAPI),
		Summary: fmt.Sprintf(
			"EUR %.2f of consulting-equivalent work delivered for EUR %.4f of compute.",
			totalHuman, totalAPI),
	}
}

func marginPercent(value, cost float64) float64 {
	if value <= 0 {
		return 0
	}
	return round2(((value - cost) / value) * 100)
}

func roiMultiplier(totalHuman, totalAPI float64) float64 {
	if totalHuman <= 0 {
		return 0
	}
	if totalAPI < minComputeCost {
		totalAPI = minComputeCost
	}
	m := totalHuman / totalAPI
	if math.IsInf(m, 0) || math.IsNaN(m) || m < 0 {
		return 0
	}
	return round2(m)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
