package scoring

import (
	"testing"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/signal"
)

func profileAt(category signal.Category, publishedAt *core.Timestamp, exposure, valueAtRisk float64) signal.RiskProfile {
	return signal.RiskProfile{
		Item: signal.Item{
			Category:      category,
			PublishedAt:   publishedAt,
			ExposureScore: exposure,
		},
		ValueAtRisk: valueAtRisk,
	}
}

func tsAt(t time.Time) *core.Timestamp {
	ts := core.NewTimestamp(t)
	return &ts
}

func TestDedupWeightLadder(t *testing.T) {
	tests := []struct {
		rank int
		want float64
	}{
		{0, 1.0},
		{1, 0.2},
		{2, 0.1},
		{3, 0.1},
		{9, 0.1},
		{-1, 0.0},
	}
	for _, tt := range tests {
		if got := DedupWeight(tt.rank); got != tt.want {
			t.Errorf("DedupWeight(%d): expected %v, got %v", tt.rank, tt.want, got)
		}
	}
}

func TestApplyDedupWeightsSingleCluster(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profiles := []signal.RiskProfile{
		profileAt(signal.CategorySecurityFraud, tsAt(base), 40, 1000),
		profileAt(signal.CategorySecurityFraud, tsAt(base.Add(3*time.Hour)), 60, 2000),
		profileAt(signal.CategorySecurityFraud, tsAt(base.Add(10*time.Hour)), 20, 500),
	}

	total := ApplyDedupWeights(profiles)

	// Highest exposure (index 1) counts in full, then 0.2, then 0.1.
	if profiles[1].DedupWeight != 1.0 {
		t.Errorf("expected top profile weight 1.0, got %v", profiles[1].DedupWeight)
	}
	if profiles[0].DedupWeight != 0.2 {
		t.Errorf("expected second profile weight 0.2, got %v", profiles[0].DedupWeight)
	}
	if profiles[2].DedupWeight != 0.1 {
		t.Errorf("expected third profile weight 0.1, got %v", profiles[2].DedupWeight)
	}
	want := 2000*1.0 + 1000*0.2 + 500*0.1
	if total != want {
		t.Errorf("expected total %v, got %v", want, total)
	}
}

// Three profiles with identical exposure must still receive three distinct
// weights, assigned in input order.
func TestApplyDedupWeightsEqualExposure(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profiles := []signal.RiskProfile{
		profileAt(signal.CategoryProductBug, tsAt(base), 25, 300),
		profileAt(signal.CategoryProductBug, tsAt(base.Add(time.Hour)), 25, 300),
		profileAt(signal.CategoryProductBug, tsAt(base.Add(2*time.Hour)), 25, 300),
	}

	total := ApplyDedupWeights(profiles)

	wantWeights := []float64{1.0, 0.2, 0.1}
	for i, w := range wantWeights {
		if profiles[i].DedupWeight != w {
			t.Errorf("profile %d: expected weight %v, got %v", i, w, profiles[i].DedupWeight)
		}
	}
	want := 300*1.0 + 300*0.2 + 300*0.1
	if total != want {
		t.Errorf("expected total %v, got %v", want, total)
	}
}

func TestApplyDedupWeightsSeparatesCategories(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profiles := []signal.RiskProfile{
		profileAt(signal.CategorySecurityFraud, tsAt(base), 50, 1000),
		profileAt(signal.CategoryLaborRelations, tsAt(base), 40, 800),
	}

	total := ApplyDedupWeights(profiles)

	if profiles[0].DedupWeight != 1.0 || profiles[1].DedupWeight != 1.0 {
		t.Errorf("distinct categories must both count in full, got %v and %v",
			profiles[0].DedupWeight, profiles[1].DedupWeight)
	}
	if total != 1800 {
		t.Errorf("expected total 1800, got %v", total)
	}
}

func TestApplyDedupWeightsSeparatesDistantEvents(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profiles := []signal.RiskProfile{
		profileAt(signal.CategorySecurityFraud, tsAt(base), 50, 1000),
		profileAt(signal.CategorySecurityFraud, tsAt(base.Add(5*24*time.Hour)), 40, 800),
	}

	total := ApplyDedupWeights(profiles)

	if total != 1800 {
		t.Errorf("events five days apart must not cluster, expected 1800, got %v", total)
	}
}

func TestApplyDedupWeightsUndatedClusterTogether(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profiles := []signal.RiskProfile{
		profileAt(signal.CategoryLegalCompliance, nil, 30, 600),
		profileAt(signal.CategoryLegalCompliance, nil, 20, 400),
		profileAt(signal.CategoryLegalCompliance, tsAt(base), 10, 200),
	}

	ApplyDedupWeights(profiles)

	// The two undated profiles share a cluster; the dated one stands alone.
	if profiles[0].DedupWeight != 1.0 {
		t.Errorf("expected undated leader weight 1.0, got %v", profiles[0].DedupWeight)
	}
	if profiles[1].DedupWeight != 0.2 {
		t.Errorf("expected undated follower weight 0.2, got %v", profiles[1].DedupWeight)
	}
	if profiles[2].DedupWeight != 1.0 {
		t.Errorf("expected dated profile in its own cluster, got weight %v", profiles[2].DedupWeight)
	}
}

func TestApplyDedupWeightsEmpty(t *testing.T) {
	if got := ApplyDedupWeights(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}
