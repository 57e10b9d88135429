package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
	"crisiswatch/ports"
)

const researchMaxResults = 6

// ResearchStage is stage 2: finds historical comparator cases for the
// dominant topic, extracts them as structured precedents, then runs the
// verification gate, a second independent pass that re-reads each
// case's cited source and drops every case it cannot confirm.
type ResearchStage struct {
	search      ports.SearchProvider
	extractor   ports.ContentExtractor
	completions ports.CompleterFactory
	creds       ports.CredentialPool
}

// NewResearchStage wires stage 2
func NewResearchStage(search ports.SearchProvider, extractor ports.ContentExtractor,
	completions ports.CompleterFactory, creds ports.CredentialPool) *ResearchStage {
	return &ResearchStage{
		search:      search,
		extractor:   extractor,
		completions: completions,
		creds:       creds,
	}
}

func (s *ResearchStage) Name() string { return StageResearch }

func (s *ResearchStage) Inputs() []state.Key {
	return []state.Key{state.KeySubjectName, state.KeySignalItems, state.KeySignalGroups}
}

func (s *ResearchStage) Outputs() []state.Key {
	return []state.Key{state.KeyPrecedentCases, state.KeyGlobalLesson, state.KeyConfidenceLevel, state.KeyResearchCost}
}

func (s *ResearchStage) Timeout() time.Duration { return 180 * time.Second }

func (s *ResearchStage) MaxRetries() int { return 0 }

// precedentExtraction is the first-pass response schema
type precedentExtraction struct {
	Cases []struct {
		Company      string `json:"company"`
		Year         int    `json:"year"`
		Crisis       string `json:"crisis"`
		CrisisType   string `json:"crisis_type"`
		StrategyUsed string `json:"strategy_used"`
		Outcome      string `json:"outcome"`
		SuccessScore int    `json:"success_score"`
		Lesson       string `json:"lesson"`
		SourceURL    string `json:"source_url"`
	} `json:"cases"`
	GlobalLesson string `json:"global_lesson"`
}

// caseVerification is the gate's per-case response schema
type caseVerification struct {
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason"`
}

func (s *ResearchStage) Run(ctx context.Context, acc *state.Access) error {
	subject, err := state.Get[string](acc, state.KeySubjectName)
	if err != nil {
		return err
	}
	groups, err := state.Get[[]signal.Group](acc, state.KeySignalGroups)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: research requires at least one signal group", core.ErrNoUsableItems)
	}
	topic := groups[0] // highest aggregate exposure

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire credential: %v", core.ErrExternalService, err)
	}
	defer s.creds.Release(cred)
	llm := s.completions.WithCredential(cred)

	completions := 0

	hits, err := s.search.Search(ctx, precedentSearchQuery(subject, topic.Category), researchMaxResults)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSearchFailed, err)
	}
	log.Printf("[Research] %d precedent sources for topic %s", len(hits), topic.Category)

	var extracted precedentExtraction
	if len(hits) > 0 {
		req := ports.CompletionRequest{
			System:    analystSystem,
			Prompt:    precedentExtractionPrompt(subject, topic, s.renderSources(ctx, hits)),
			MaxTokens: 3000,
		}
		if err := llm.Complete(ctx, req, &extracted); err != nil {
			return err
		}
		completions++
	}

	cases := make([]precedent.Case, 0, len(extracted.Cases))
	for _, c := range extracted.Cases {
		cases = append(cases, precedent.Case{
			ID:           core.CaseID(core.NewID()),
			Company:      c.Company,
			Year:         c.Year,
			Crisis:       c.Crisis,
			CrisisType:   precedent.CrisisType(c.CrisisType),
			StrategyUsed: c.StrategyUsed,
			Outcome:      c.Outcome,
			SuccessScore: clampScore(c.SuccessScore),
			Lesson:       c.Lesson,
			SourceURL:    c.SourceURL,
		})
	}

	verified, gateCalls := s.verify(ctx, llm, cases)
	completions += gateCalls
	log.Printf("[Research] Verification gate: %d/%d cases confirmed", len(verified), len(cases))

	globalLesson := extracted.GlobalLesson
	if len(verified) == 0 {
		globalLesson = ""
	}

	if err := acc.Set(state.KeyPrecedentCases, verified); err != nil {
		return err
	}
	if err := acc.Set(state.KeyGlobalLesson, globalLesson); err != nil {
		return err
	}
	if err := acc.Set(state.KeyConfidenceLevel, precedent.ConfidenceForCount(len(verified))); err != nil {
		return err
	}
	return acc.Set(state.KeyResearchCost, completionCost(completions))
}

// verify is the gate: every surviving case's claims are independently
// confirmed against its cited source. Cases are confirmed or dropped,
// never corrected or flagged as uncertain. The pass is deterministic for
// unchanged evidence, so re-running it on an already-verified set yields
// the same survivors.
func (s *ResearchStage) verify(ctx context.Context, llm ports.Completer, cases []precedent.Case) ([]precedent.Case, int) {
	verified := make([]precedent.Case, 0, len(cases))
	calls := 0
	for _, c := range cases {
		if c.SourceURL == "" {
			log.Printf("[Research] Rejecting case %s (%d): no source cited", c.Company, c.Year)
			continue
		}
		sourceText, err := s.extractor.Extract(ctx, c.SourceURL)
		if err != nil || strings.TrimSpace(sourceText) == "" {
			// Unreadable source means unconfirmable claims
			log.Printf("[Research] Rejecting case %s (%d): source unreadable: %v", c.Company, c.Year, err)
			continue
		}

		var verdict caseVerification
		req := ports.CompletionRequest{
			System: analystSystem,
			Prompt: precedentVerificationPrompt(c, sourceText),
		}
		if err := llm.Complete(ctx, req, &verdict); err != nil {
			log.Printf("[Research] Rejecting case %s (%d): verification call failed: %v", c.Company, c.Year, err)
			continue
		}
		calls++
		if !verdict.Confirmed {
			log.Printf("[Research] Rejecting case %s (%d): %s", c.Company, c.Year, verdict.Reason)
			continue
		}
		verified = append(verified, c)
	}
	return verified, calls
}

func (s *ResearchStage) renderSources(ctx context.Context, hits []ports.Hit) string {
	var b strings.Builder
	for i, hit := range hits {
		text := hit.Snippet
		if full, err := s.extractor.Extract(ctx, hit.URL); err == nil && full != "" {
			text = full
		}
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, hit.Title, hit.URL, clip(text, 2000))
	}
	return b.String()
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
