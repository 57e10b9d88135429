package precedent

import (
	"crisiswatch/domain/core"
)

// CrisisType categorizes a historical comparator crisis
type CrisisType string

const (
	CrisisDataBreach    CrisisType = "data_breach"
	CrisisFraud         CrisisType = "fraud"
	CrisisLegal         CrisisType = "legal"
	CrisisEthics        CrisisType = "ethics"
	CrisisProductRecall CrisisType = "product_recall"
	CrisisLabor         CrisisType = "labor"
	CrisisOther         CrisisType = "other"
)

// Case is one historical comparator: how another company handled a
// similar crisis, and how it turned out. Cases that survive the
// verification gate carry claims independently confirmed against
// their cited source.
type Case struct {
	ID           core.CaseID `json:"id"`
	Company      string      `json:"company"`
	Year         int         `json:"year"`
	Crisis       string      `json:"crisis"`
	CrisisType   CrisisType  `json:"crisis_type"`
	StrategyUsed string      `json:"strategy_used"`
	Outcome      string      `json:"outcome"`
	SuccessScore int         `json:"success_score"` // 1..10
	Lesson       string      `json:"lesson"`
	SourceURL    string      `json:"source_url"`
}

// ConfidenceLevel qualifies how strongly the surviving case set supports
// the global lesson.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ConfidenceForCount derives a confidence level from the number of
// verified cases.
func ConfidenceForCount(verified int) ConfidenceLevel {
	switch {
	case verified >= 3:
		return ConfidenceHigh
	case verified >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
