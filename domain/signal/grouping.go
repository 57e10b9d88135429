package signal

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// GroupByCategory clusters fully-scored items into per-category groups.
//
// Ordering invariants:
//   - items within a group are sorted by exposure score descending,
//     ties broken by insertion order (stable);
//   - groups are sorted by aggregate exposure (sum of member scores)
//     descending, ties broken by first-seen order (stable).
//
// Re-running on the same input yields byte-identical ordering.
func GroupByCategory(items []Item) []Group {
	byCategory := make(map[Category][]Item)
	var seen []Category
	for _, item := range items {
		if _, ok := byCategory[item.Category]; !ok {
			seen = append(seen, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	groups := make([]Group, 0, len(seen))
	for _, cat := range seen {
		members := make([]Item, len(byCategory[cat]))
		copy(members, byCategory[cat])
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ExposureScore > members[j].ExposureScore
		})

		scores := make([]float64, len(members))
		for i, m := range members {
			scores[i] = m.ExposureScore
		}
		total, err := stats.Sum(scores)
		if err != nil {
			total = 0
		}

		groups = append(groups, Group{
			Category:          cat,
			Title:             string(cat),
			AggregateExposure: total,
			Items:             members,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].AggregateExposure > groups[j].AggregateExposure
	})
	return groups
}

// ExposureProfile summarizes the exposure distribution across items.
// Used to give the strategy stage a compact view of how concentrated
// the coverage is.
type ExposureProfile struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// ProfileExposure computes summary statistics over item exposure scores.
// An empty input yields a zero profile.
func ProfileExposure(items []Item) ExposureProfile {
	if len(items) == 0 {
		return ExposureProfile{}
	}
	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = item.ExposureScore
	}
	sum, _ := stats.Sum(scores)
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	max, _ := stats.Max(scores)
	return ExposureProfile{
		Count:  len(items),
		Sum:    sum,
		Mean:   mean,
		Median: median,
		Max:    max,
	}
}
