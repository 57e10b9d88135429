package scoring

import (
	"testing"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/signal"
)

func TestRecencyMultiplierTiers(t *testing.T) {
	table := DefaultDecayTable()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"breaking news", 30 * time.Minute, 3.0},
		{"just under two hours", 2*time.Hour - time.Second, 3.0},
		{"same day", 10 * time.Hour, 1.0},
		{"yesterday", 36 * time.Hour, 0.5},
		{"last week", 7 * 24 * time.Hour, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := core.NewTimestamp(now.Add(-tt.age))
			got := table.RecencyMultiplier(&ts, now)
			if got != tt.want {
				t.Errorf("age %v: expected %v, got %v", tt.age, tt.want, got)
			}
		})
	}
}

// An item without a publication date must land on the lowest tier, never
// the same-day one. Rewarding missing data would let undated republished
// archive pieces dominate the exposure total.
func TestRecencyMultiplierUnknownDateGetsFloor(t *testing.T) {
	table := DefaultDecayTable()
	now := time.Now()

	if got := table.RecencyMultiplier(nil, now); got != table.Floor {
		t.Errorf("nil timestamp: expected floor %v, got %v", table.Floor, got)
	}
	zero := core.Timestamp{}
	if got := table.RecencyMultiplier(&zero, now); got != table.Floor {
		t.Errorf("zero timestamp: expected floor %v, got %v", table.Floor, got)
	}
}

func TestRecencyMultiplierFutureDated(t *testing.T) {
	table := DefaultDecayTable()
	now := time.Now()
	ts := core.NewTimestamp(now.Add(6 * time.Hour))

	if got := table.RecencyMultiplier(&ts, now); got != 1.0 {
		t.Errorf("future-dated source: expected conservative 1.0, got %v", got)
	}
}

func TestTopicWeightLookup(t *testing.T) {
	weights := DefaultTopicWeights()

	if got := weights.Weight(signal.CategorySecurityFraud); got != 3.0 {
		t.Errorf("security_fraud: expected 3.0, got %v", got)
	}
	if got := weights.Weight(signal.CategoryCustomerService); got != 0.5 {
		t.Errorf("customer_service: expected 0.5, got %v", got)
	}
	if got := weights.Weight(signal.Category("unheard_of")); got != 1.0 {
		t.Errorf("unknown category: expected neutral 1.0, got %v", got)
	}
}

func TestSentimentWeightLookup(t *testing.T) {
	weights := DefaultSentimentWeights()

	if got := weights.Weight(signal.SentimentNegative); got != 1.5 {
		t.Errorf("negative: expected 1.5, got %v", got)
	}
	if got := weights.Weight(signal.Sentiment("confused")); got != 1.0 {
		t.Errorf("unknown sentiment: expected neutral 1.0, got %v", got)
	}
}

func TestSnapViralCoefficient(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.0, 0.8},
		{0.8, 0.8},
		{1.0, 0.8},
		{1.2, 1.2},
		{1.35, 1.2},
		{1.5, 1.5},
		{2.0, 1.5},
		{2.5, 2.5},
		{17.0, 2.5},
	}
	for _, tt := range tests {
		if got := SnapViralCoefficient(tt.in); got != tt.want {
			t.Errorf("SnapViralCoefficient(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
