package signal

import (
	"reflect"
	"testing"
)

func itemWith(title string, category Category, exposure float64) Item {
	return Item{Title: title, Category: category, ExposureScore: exposure}
}

func TestGroupByCategoryOrdering(t *testing.T) {
	items := []Item{
		itemWith("b1", CategoryLaborRelations, 25),
		itemWith("a1", CategorySecurityFraud, 40),
		itemWith("a2", CategorySecurityFraud, 10),
		itemWith("b2", CategoryLaborRelations, 5),
		itemWith("a3", CategorySecurityFraud, 30),
	}

	groups := GroupByCategory(items)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Security fraud sums to 80, labor relations to 30.
	if groups[0].Category != CategorySecurityFraud || groups[0].AggregateExposure != 80 {
		t.Errorf("expected security_fraud first with aggregate 80, got %s %v",
			groups[0].Category, groups[0].AggregateExposure)
	}
	if groups[1].Category != CategoryLaborRelations || groups[1].AggregateExposure != 30 {
		t.Errorf("expected labor_relations second with aggregate 30, got %s %v",
			groups[1].Category, groups[1].AggregateExposure)
	}

	var titles []string
	for _, m := range groups[0].Items {
		titles = append(titles, m.Title)
	}
	if !reflect.DeepEqual(titles, []string{"a1", "a3", "a2"}) {
		t.Errorf("expected members sorted by exposure desc, got %v", titles)
	}
}

func TestGroupByCategoryTieKeepsFirstSeenOrder(t *testing.T) {
	items := []Item{
		itemWith("x", CategoryProductBug, 20),
		itemWith("y", CategoryCustomerService, 20),
	}

	groups := GroupByCategory(items)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Category != CategoryProductBug {
		t.Errorf("tied aggregates must keep first-seen order, got %s first", groups[0].Category)
	}
}

func TestGroupByCategoryDeterministic(t *testing.T) {
	items := []Item{
		itemWith("a", CategorySecurityFraud, 12),
		itemWith("b", CategoryLegalCompliance, 9),
		itemWith("c", CategorySecurityFraud, 12),
		itemWith("d", CategoryEthicsManagement, 9),
	}

	first := GroupByCategory(items)
	for i := 0; i < 20; i++ {
		again := GroupByCategory(items)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: grouping differed between runs", i)
		}
	}
}

func TestGroupByCategoryEmpty(t *testing.T) {
	if groups := GroupByCategory(nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %d", len(groups))
	}
}

func TestProfileExposure(t *testing.T) {
	items := []Item{
		itemWith("a", CategorySecurityFraud, 10),
		itemWith("b", CategorySecurityFraud, 20),
		itemWith("c", CategorySecurityFraud, 30),
		itemWith("d", CategorySecurityFraud, 40),
	}

	profile := ProfileExposure(items)

	if profile.Count != 4 {
		t.Errorf("expected count 4, got %d", profile.Count)
	}
	if profile.Sum != 100 {
		t.Errorf("expected sum 100, got %v", profile.Sum)
	}
	if profile.Mean != 25 {
		t.Errorf("expected mean 25, got %v", profile.Mean)
	}
	if profile.Median != 25 {
		t.Errorf("expected median 25, got %v", profile.Median)
	}
	if profile.Max != 40 {
		t.Errorf("expected max 40, got %v", profile.Max)
	}
}

func TestProfileExposureEmpty(t *testing.T) {
	profile := ProfileExposure(nil)
	if profile != (ExposureProfile{}) {
		t.Errorf("expected zero profile for empty input, got %+v", profile)
	}
}
