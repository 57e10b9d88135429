package scoring

import (
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/signal"
)

// Simulation constants for the financial model. These mirror a mid-size
// B2C subscription business; callers needing other profiles construct a
// Model with their own values.
const (
	DefaultCAC            = 100.0     // cost per acquired customer, EUR
	DefaultARR            = 1200.0    // average annual revenue per customer, EUR
	DefaultTotalCustomers = 10000.0   // customer base size
	KReach                = 5000.0    // reach scale constant per authority point
	ReachCap              = 1_000_000 // reach is capped for simulation sanity
)

// DecayTier is one step of the recency decay curve
type DecayTier struct {
	MaxAge     time.Duration
	Multiplier float64
}

// DecayTable maps elapsed time since publication to a recency multiplier.
// Tiers must be ordered by ascending MaxAge; the final multiplier applies
// beyond the last tier and to items with no publication time at all.
type DecayTable struct {
	Tiers []DecayTier
	Floor float64
}

// DefaultDecayTable: breaking news triples exposure, anything past two
// days is archive noise.
func DefaultDecayTable() DecayTable {
	return DecayTable{
		Tiers: []DecayTier{
			{MaxAge: 2 * time.Hour, Multiplier: 3.0},
			{MaxAge: 24 * time.Hour, Multiplier: 1.0},
			{MaxAge: 48 * time.Hour, Multiplier: 0.5},
		},
		Floor: 0.1,
	}
}

// RecencyMultiplier returns the decay multiplier for a publication time.
// An unknown publication time receives the floor tier, never a higher one:
// missing data must not be rewarded.
func (d DecayTable) RecencyMultiplier(publishedAt *core.Timestamp, now time.Time) float64 {
	if publishedAt == nil || publishedAt.IsZero() {
		return d.Floor
	}
	age := now.Sub(publishedAt.Time())
	if age < 0 {
		// Future-dated sources get the most conservative active tier,
		// not the breaking-news boost.
		age = 0
		for _, tier := range d.Tiers {
			if tier.MaxAge >= 24*time.Hour {
				return tier.Multiplier
			}
		}
	}
	for _, tier := range d.Tiers {
		if age < tier.MaxAge {
			return tier.Multiplier
		}
	}
	return d.Floor
}

// TopicWeights maps a category to its risk multiplier. The same weight
// drives both the exposure formula and churn sensitivity.
type TopicWeights map[signal.Category]float64

// DefaultTopicWeights is the default risk-multiplier table
func DefaultTopicWeights() TopicWeights {
	return TopicWeights{
		signal.CategorySecurityFraud:        3.0,
		signal.CategoryLegalCompliance:      2.0,
		signal.CategoryEthicsManagement:     1.5,
		signal.CategoryLaborRelations:       1.6,
		signal.CategoryFinancialPerformance: 1.4,
		signal.CategoryOperationalIncident:  1.3,
		signal.CategoryProductBug:           1.0,
		signal.CategoryCustomerService:      0.5,
	}
}

// Weight returns the multiplier for a category, 1.0 when unknown
func (w TopicWeights) Weight(c signal.Category) float64 {
	if v, ok := w[c]; ok {
		return v
	}
	return 1.0
}

// SentimentWeights maps a sentiment label to its exposure factor
type SentimentWeights map[signal.Sentiment]float64

// DefaultSentimentWeights: hostile coverage amplifies exposure, favorable
// coverage dampens it.
func DefaultSentimentWeights() SentimentWeights {
	return SentimentWeights{
		signal.SentimentNegative: 1.5,
		signal.SentimentNeutral:  1.0,
		signal.SentimentPositive: 0.5,
	}
}

// Weight returns the factor for a sentiment, neutral weight when unknown
func (w SentimentWeights) Weight(s signal.Sentiment) float64 {
	if v, ok := w[s]; ok {
		return v
	}
	return 1.0
}

// ViralCoefficients is the fixed ladder of shareability values the topic
// classifier may assign.
var ViralCoefficients = []float64{0.8, 1.2, 1.5, 2.5}

// SnapViralCoefficient snaps an arbitrary model-supplied coefficient onto
// the fixed ladder so downstream arithmetic stays on known values.
func SnapViralCoefficient(v float64) float64 {
	switch {
	case v <= 1.0:
		return 0.8
	case v <= 1.35:
		return 1.2
	case v <= 2.0:
		return 1.5
	default:
		return 2.5
	}
}
