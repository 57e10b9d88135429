package scoring

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"crisiswatch/domain/signal"
)

// Deduplication: repeated press coverage of one underlying event must not
// inflate the run-level value at risk. Profiles sharing a category whose
// publication times fall inside one event window form a cluster; the
// highest-exposure member contributes in full, the second at 20%, every
// additional member at 10%.

// DedupWindow bounds how far apart two publication times can be while
// still describing the same underlying event.
const DedupWindow = 48 * time.Hour

var dedupWeights = []float64{1.0, 0.2, 0.1}

// DedupWeight returns the declining weight for the i-th member (0-based)
// of an event cluster, ordered by descending exposure.
func DedupWeight(rank int) float64 {
	if rank < 0 {
		return 0
	}
	if rank < len(dedupWeights) {
		return dedupWeights[rank]
	}
	return dedupWeights[len(dedupWeights)-1]
}

// ApplyDedupWeights partitions profiles into event clusters, assigns each
// profile its DedupWeight, and returns the weighted run-level VaR total.
// The input slice is annotated in place; ordering is preserved.
func ApplyDedupWeights(profiles []signal.RiskProfile) float64 {
	clusters := clusterByEvent(profiles)

	for _, cluster := range clusters {
		// Rank within the cluster by descending item exposure, stable on
		// original position so equal scores keep collection order.
		sort.SliceStable(cluster, func(i, j int) bool {
			return profiles[cluster[i]].Item.ExposureScore > profiles[cluster[j]].Item.ExposureScore
		})
		for rank, idx := range cluster {
			profiles[idx].DedupWeight = DedupWeight(rank)
		}
	}

	values := make([]float64, len(profiles))
	weights := make([]float64, len(profiles))
	for i, p := range profiles {
		values[i] = p.ValueAtRisk
		weights[i] = p.DedupWeight
	}
	if len(profiles) == 0 {
		return 0
	}
	return round2(floats.Dot(values, weights))
}

// clusterByEvent returns index sets of profiles judged to describe the
// same underlying event: same category, publication times overlapping a
// DedupWindow anchored at the cluster's earliest member. Profiles without
// a publication time cluster together per category.
func clusterByEvent(profiles []signal.RiskProfile) [][]int {
	type anchor struct {
		start time.Time
		dated bool
	}

	var clusters [][]int
	anchors := make(map[int]anchor)
	byCategory := make(map[signal.Category][]int) // cluster ids per category

	for i, p := range profiles {
		pub := p.Item.PublishedAt
		assigned := -1
		for _, cid := range byCategory[p.Item.Category] {
			a := anchors[cid]
			if pub == nil || pub.IsZero() {
				if !a.dated {
					assigned = cid
					break
				}
				continue
			}
			if a.dated && absDuration(pub.Time().Sub(a.start)) <= DedupWindow {
				assigned = cid
				break
			}
		}
		if assigned == -1 {
			assigned = len(clusters)
			clusters = append(clusters, nil)
			byCategory[p.Item.Category] = append(byCategory[p.Item.Category], assigned)
			if pub != nil && !pub.IsZero() {
				anchors[assigned] = anchor{start: pub.Time(), dated: true}
			} else {
				anchors[assigned] = anchor{dated: false}
			}
		}
		clusters[assigned] = append(clusters[assigned], i)
	}
	return clusters
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
