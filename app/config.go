package app

import (
	"math"

	"crisiswatch/domain/scoring"
	"crisiswatch/domain/signal"
)

// costPerCompletion is the accounting estimate for one structured
// completion call, in EUR. Stage cost keys carry calls * this rate.
const costPerCompletion = 0.008

func completionCost(calls int) float64 {
	return math.Round(float64(calls)*costPerCompletion*10000) / 10000
}

// Tables carries the pluggable lookup tables and financial constants the
// scoring stages consult. Defaults mirror a mid-size subscription
// business; operators with other risk profiles swap their own tables in.
type Tables struct {
	Decay          scoring.DecayTable
	Topics         scoring.TopicWeights
	Sentiments     scoring.SentimentWeights
	CAC            float64
	ARR            float64
	TotalCustomers float64
}

// scoreItemExposure resolves the table factors for an item and computes
// its exposure score.
func scoreItemExposure(t Tables, authority, severity int, category signal.Category, sentiment signal.Sentiment, recency float64) (float64, error) {
	return scoring.ExposureScore(authority, severity, recency, t.Topics.Weight(category), t.Sentiments.Weight(sentiment))
}

// DefaultTables returns the stock lookup tables
func DefaultTables() Tables {
	return Tables{
		Decay:          scoring.DefaultDecayTable(),
		Topics:         scoring.DefaultTopicWeights(),
		Sentiments:     scoring.DefaultSentimentWeights(),
		CAC:            scoring.DefaultCAC,
		ARR:            scoring.DefaultARR,
		TotalCustomers: scoring.DefaultTotalCustomers,
	}
}
