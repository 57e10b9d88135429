package strategy

import "sort"

// AlertLevel is the categorical severity tier of a run. It drives both the
// response recommendation and the billing refusal rule.
type AlertLevel string

const (
	AlertIgnore   AlertLevel = "IGNORE" // lowest tier: no action billed
	AlertLow      AlertLevel = "LOW"
	AlertMedium   AlertLevel = "MEDIUM"
	AlertHigh     AlertLevel = "HIGH"
	AlertCritical AlertLevel = "CRITICAL"
)

// IsValid checks the level against the fixed ladder
func (l AlertLevel) IsValid() bool {
	switch l {
	case AlertIgnore, AlertLow, AlertMedium, AlertHigh, AlertCritical:
		return true
	}
	return false
}

// IsLowest reports whether the level is the refusal tier
func (l AlertLevel) IsLowest() bool {
	return l == AlertIgnore
}

// Option is one of exactly three named response strategies
type Option struct {
	Name         string   `json:"name"`
	Tone         string   `json:"tone"`
	Channels     []string `json:"channels"`
	CostEstimate float64  `json:"cost_estimate_eur"`
	Impact       string   `json:"impact"`
	ROIScore     int      `json:"roi_score"` // 1..10
	Recommended  bool     `json:"recommended"`
}

// Drafts are the generated communication pieces accompanying the
// recommended strategy. Wording is model output and not normative.
type Drafts struct {
	PressRelease  string `json:"press_release"`
	InternalEmail string `json:"internal_email"`
	SocialPost    string `json:"social_post"`
}

// Count returns the number of non-empty drafts
func (d Drafts) Count() int {
	n := 0
	for _, s := range []string{d.PressRelease, d.InternalEmail, d.SocialPost} {
		if s != "" {
			n++
		}
	}
	return n
}

// Report is the full output of the strategy synthesis stage
type Report struct {
	AlertLevel          AlertLevel `json:"alert_level"`
	AlertReasoning      string     `json:"alert_reasoning"`
	Strategies          []Option   `json:"strategies"`
	RecommendedStrategy string     `json:"recommended_strategy"`
	DecisionSummary     string     `json:"decision_summary"`
	Drafts              Drafts     `json:"drafts"`
}

// Normalize enforces the exactly-one-recommended invariant. If the model
// marked none or several options as recommended, the highest-ROI option
// wins (first wins on ties) and RecommendedStrategy is realigned.
func (r *Report) Normalize() {
	if len(r.Strategies) == 0 {
		return
	}
	recommended := -1
	count := 0
	for i := range r.Strategies {
		if r.Strategies[i].Recommended {
			count++
			if recommended == -1 {
				recommended = i
			}
		}
	}
	if count != 1 {
		order := make([]int, len(r.Strategies))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return r.Strategies[order[a]].ROIScore > r.Strategies[order[b]].ROIScore
		})
		recommended = order[0]
	}
	for i := range r.Strategies {
		r.Strategies[i].Recommended = i == recommended
	}
	r.RecommendedStrategy = r.Strategies[recommended].Name
}
