package signal

import (
	"crisiswatch/domain/core"
)

// Category classifies the underlying subject of a piece of evidence.
// The set is fixed: scoring tables are keyed by it.
type Category string

const (
	CategorySecurityFraud        Category = "security_fraud"
	CategoryLegalCompliance      Category = "legal_compliance"
	CategoryEthicsManagement     Category = "ethics_management"
	CategoryLaborRelations       Category = "labor_relations"
	CategoryFinancialPerformance Category = "financial_performance"
	CategoryOperationalIncident  Category = "operational_incident"
	CategoryProductBug           Category = "product_bug"
	CategoryCustomerService      Category = "customer_service"
)

// Categories lists all known categories in display order
func Categories() []Category {
	return []Category{
		CategorySecurityFraud,
		CategoryLegalCompliance,
		CategoryEthicsManagement,
		CategoryLaborRelations,
		CategoryFinancialPerformance,
		CategoryOperationalIncident,
		CategoryProductBug,
		CategoryCustomerService,
	}
}

// IsValid checks the category against the fixed set
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Sentiment labels the tone of a piece of evidence toward the subject
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// IsValid checks the sentiment against the fixed set
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentNegative, SentimentNeutral, SentimentPositive:
		return true
	}
	return false
}

// Item is one piece of evidence (typically a news article) collected and
// scored by the collection stage. Items are never mutated after creation
// within a run; financial enrichment produces derived copies.
type Item struct {
	ID                core.SignalID   `json:"id"`
	Title             string          `json:"title"`
	Summary           string          `json:"summary"`
	SourceURL         string          `json:"source_url"`
	PublishedAt       *core.Timestamp `json:"published_at,omitempty"` // absent when the source carries no date
	Category          Category        `json:"category"`
	Authority         int             `json:"authority"` // 1..5
	Severity          int             `json:"severity"`  // 1..5
	Sentiment         Sentiment       `json:"sentiment"`
	RecencyMultiplier float64         `json:"recency_multiplier"`
	ExposureScore     float64         `json:"exposure_score"`

	// Raw extracted text kept for downstream classification; stripped
	// from API responses.
	Content string `json:"-"`
}

// Group is a named cluster of items sharing a category
type Group struct {
	Category          Category `json:"category"`
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	AggregateExposure float64  `json:"aggregate_exposure"`
	Items             []Item   `json:"items"`
}

// RiskProfile is the per-item financial enrichment produced by the scoring
// stage. It embeds a copy of the originating item: collection-stage output
// stays reconstructible.
type RiskProfile struct {
	Item             Item    `json:"item"`
	TopicWeight      float64 `json:"topic_weight"`
	ViralCoefficient float64 `json:"viral_coefficient"`
	ReachEstimate    float64 `json:"reach_estimate"`
	ChurnRiskPercent float64 `json:"churn_risk_percent"`
	ValueAtRisk      float64 `json:"value_at_risk"`

	// DedupWeight is the declining weight applied to this profile before
	// it is summed into the run-level total (1.0 / 0.2 / 0.1).
	DedupWeight float64 `json:"dedup_weight"`
}
