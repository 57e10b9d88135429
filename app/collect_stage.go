package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
	"crisiswatch/ports"
)

const collectMaxResults = 10

// CollectStage is stage 1: the only stage with no upstream dependency.
// It searches for recent critical coverage of the subject, analyzes each
// hit through the completion capability, scores exposure, and groups the
// scored items by category.
type CollectStage struct {
	search      ports.SearchProvider
	extractor   ports.ContentExtractor
	completions ports.CompleterFactory
	creds       ports.CredentialPool
	tables      Tables
	retries     int
	now         func() time.Time
}

// NewCollectStage wires stage 1. searchRetries opts the idempotent search
// call into retries; the per-item analysis budget is never retried.
func NewCollectStage(search ports.SearchProvider, extractor ports.ContentExtractor,
	completions ports.CompleterFactory, creds ports.CredentialPool, tables Tables, searchRetries int) *CollectStage {
	return &CollectStage{
		search:      search,
		extractor:   extractor,
		completions: completions,
		creds:       creds,
		tables:      tables,
		retries:     searchRetries,
		now:         time.Now,
	}
}

func (s *CollectStage) Name() string { return StageCollection }

func (s *CollectStage) Inputs() []state.Key {
	return []state.Key{state.KeySubjectName}
}

func (s *CollectStage) Outputs() []state.Key {
	return []state.Key{state.KeySignalItems, state.KeySignalGroups}
}

func (s *CollectStage) Timeout() time.Duration { return 120 * time.Second }

func (s *CollectStage) MaxRetries() int { return s.retries }

// collectAnalysis is the per-article response schema
type collectAnalysis struct {
	Summary   string `json:"summary"`
	Authority int    `json:"authority"`
	Severity  int    `json:"severity"`
	Sentiment string `json:"sentiment"`
	Category  string `json:"category"`
}

// groupSummary is the per-group synthesis response schema
type groupSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (s *CollectStage) Run(ctx context.Context, acc *state.Access) error {
	subject, err := state.Get[string](acc, state.KeySubjectName)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("latest scandal or critical news about %s", subject)
	hits, err := s.search.Search(ctx, query, collectMaxResults)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSearchFailed, err)
	}
	log.Printf("[Collect] %d raw hits for %q", len(hits), subject)

	if len(hits) == 0 {
		// An empty result set is not a failure: downstream completes early.
		if err := acc.Set(state.KeySignalItems, []signal.Item{}); err != nil {
			return err
		}
		return acc.Set(state.KeySignalGroups, []signal.Group{})
	}

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire credential: %v", core.ErrExternalService, err)
	}
	defer s.creds.Release(cred)
	llm := s.completions.WithCredential(cred)

	items := make([]signal.Item, 0, len(hits))
	for _, hit := range hits {
		item, err := s.analyzeHit(ctx, llm, subject, hit)
		if err != nil {
			// Item-level loss is recovered locally: drop and continue
			log.Printf("[Collect] Dropping %q: %v", clip(hit.Title, 60), err)
			continue
		}
		items = append(items, *item)
		log.Printf("[Collect] Scored %q: exposure=%.2f", clip(item.Title, 60), item.ExposureScore)
	}

	if len(items) == 0 {
		return fmt.Errorf("%w: all %d hits failed analysis", core.ErrNoUsableItems, len(hits))
	}

	groups := signal.GroupByCategory(items)
	for i := range groups {
		s.summarizeGroup(ctx, llm, subject, &groups[i])
	}
	log.Printf("[Collect] %d items in %d groups", len(items), len(groups))

	// Items are stored in group-rank order so downstream stages see the
	// same stable ordering the groups expose.
	ordered := make([]signal.Item, 0, len(items))
	for _, g := range groups {
		ordered = append(ordered, g.Items...)
	}
	if err := acc.Set(state.KeySignalItems, ordered); err != nil {
		return err
	}
	return acc.Set(state.KeySignalGroups, groups)
}

func (s *CollectStage) analyzeHit(ctx context.Context, llm ports.Completer, subject string, hit ports.Hit) (*signal.Item, error) {
	content := hit.Snippet
	if text, err := s.extractor.Extract(ctx, hit.URL); err == nil && text != "" {
		content = text
	}
	// Extraction failure falls back to the search snippet: degraded
	// confidence, not a dropped item.

	var analysis collectAnalysis
	req := ports.CompletionRequest{
		System: analystSystem,
		Prompt: collectAnalysisPrompt(subject, hit.Title, hit.URL, content),
	}
	if err := llm.Complete(ctx, req, &analysis); err != nil {
		return nil, err
	}

	category := signal.Category(analysis.Category)
	if !category.IsValid() {
		category = signal.CategoryOperationalIncident
	}
	sentiment := signal.Sentiment(analysis.Sentiment)
	if !sentiment.IsValid() {
		sentiment = signal.SentimentNeutral
	}

	recency := s.tables.Decay.RecencyMultiplier(hit.PublishedAt, s.now())
	exposure, err := s.scoreExposure(analysis, category, sentiment, recency)
	if err != nil {
		return nil, err
	}

	return &signal.Item{
		ID:                core.SignalID(core.NewID()),
		Title:             hit.Title,
		Summary:           clip(analysis.Summary, 300),
		SourceURL:         hit.URL,
		PublishedAt:       hit.PublishedAt,
		Category:          category,
		Authority:         analysis.Authority,
		Severity:          analysis.Severity,
		Sentiment:         sentiment,
		RecencyMultiplier: recency,
		ExposureScore:     exposure,
		Content:           content,
	}, nil
}

func (s *CollectStage) scoreExposure(analysis collectAnalysis, category signal.Category, sentiment signal.Sentiment, recency float64) (float64, error) {
	return scoreItemExposure(s.tables, analysis.Authority, analysis.Severity, category, sentiment, recency)
}

// summarizeGroup asks the model for a display title and summary. A
// failure here degrades to the category name; it never fails the stage.
func (s *CollectStage) summarizeGroup(ctx context.Context, llm ports.Completer, subject string, group *signal.Group) {
	var summary groupSummary
	req := ports.CompletionRequest{
		System: analystSystem,
		Prompt: groupSummaryPrompt(subject, *group),
	}
	if err := llm.Complete(ctx, req, &summary); err != nil {
		log.Printf("[Collect] Group %s summary failed, keeping category title: %v", group.Category, err)
		return
	}
	if summary.Title != "" {
		group.Title = clip(summary.Title, 60)
	}
	group.Summary = summary.Summary
}
