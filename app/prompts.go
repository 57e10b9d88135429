package app

import (
	"fmt"
	"strings"

	"crisiswatch/domain/precedent"
	"crisiswatch/domain/signal"
)

// Prompt builders for the three completion-backed stages. Wording is not
// normative; the typed response schemas next to each stage are.

const analystSystem = "You are an expert in media analysis and crisis management. Respond with valid JSON only."

func collectAnalysisPrompt(subject, title, url, snippet string) string {
	return fmt.Sprintf(`Analyze this article about %s.

Provide a JSON object with:
1. "summary": a concise summary in 1-3 sentences (max 300 characters).
2. "authority": integer 1-5 for the source (5=international media, 4=national media, 3=trade press, 2=blog, 1=unknown).
3. "severity": integer 1-5 for the allegation (1=mild criticism, 2=ethical, 3=legal, 4=fraud/scandal, 5=criminal).
4. "sentiment": one of "negative", "neutral", "positive" toward %s.
5. "category": exactly one of: %s.

Article:
Title: %s
URL: %s
Excerpt: %s`,
		subject, subject, categoryList(), clip(title, 200), url, clip(snippet, 1500))
}

func groupSummaryPrompt(subject string, group signal.Group) string {
	var titles []string
	for _, item := range group.Items {
		titles = append(titles, "- "+clip(item.Title, 120))
	}
	return fmt.Sprintf(`These articles about %s all concern the topic %q:
%s

Provide a JSON object with:
1. "title": a short display title for this topic cluster (max 60 characters).
2. "summary": what is being alleged, in 1-2 sentences.`,
		subject, group.Category, strings.Join(titles, "\n"))
}

func precedentSearchQuery(subject string, topic signal.Category) string {
	return fmt.Sprintf("historical company crisis similar to %s %s case study outcome", subject, strings.ReplaceAll(string(topic), "_", " "))
}

func precedentExtractionPrompt(subject string, topic signal.Group, sources string) string {
	return fmt.Sprintf(`A company (%s) faces this situation: %s

Below are search results about how other companies handled similar crises.
Extract up to 5 historical precedent cases as a JSON object with:
1. "cases": array of objects, each with "company", "year" (integer),
   "crisis" (what happened), "crisis_type" (one of: data_breach, fraud,
   legal, ethics, product_recall, labor, other), "strategy_used",
   "outcome", "success_score" (integer 1-10), "lesson" (one sentence),
   "source_url" (the URL of the search result the case came from).
2. "global_lesson": the single most transferable lesson across cases.

Only include cases actually supported by the sources below. Do not invent.

Sources:
%s`,
		subject, clip(topic.Summary, 400), sources)
}

func precedentVerificationPrompt(c precedent.Case, sourceText string) string {
	return fmt.Sprintf(`Verify a factual claim against its cited source.

Claim: In %d, %s faced a crisis (%s), responded with %q, and the outcome was: %s

Source text:
%s

Provide a JSON object with:
1. "confirmed": true only if the source text supports the company, the
   crisis, and the response described. false otherwise.
2. "reason": one sentence explaining the decision.`,
		c.Year, c.Company, clip(c.Crisis, 200), clip(c.StrategyUsed, 200), clip(c.Outcome, 200), clip(sourceText, 4000))
}

func viralClassificationPrompt(title, snippet string) string {
	return fmt.Sprintf(`You are an expert in media risk analysis.

For this article, provide a JSON object with:
1. "viral_coefficient": shareability, one value among 0.8, 1.2, 1.5, 2.5:
   - 0.8: technical, financial, boring topic
   - 1.2: simple factual info
   - 1.5: outrage, dark humor, ecology, privacy
   - 2.5: celebrity/top-manager scandal, polarizing topic

Title: %s
Excerpt: %s`,
		clip(title, 200), clip(snippet, 1500))
}

func strategySynthesisPrompt(input strategyInput) string {
	var cases []string
	for _, c := range input.Cases {
		cases = append(cases, fmt.Sprintf("- %s (%d): %s -> %s (success %d/10)", c.Company, c.Year, clip(c.Crisis, 120), clip(c.StrategyUsed, 120), c.SuccessScore))
	}
	if len(cases) == 0 {
		cases = append(cases, "- none found")
	}
	return fmt.Sprintf(`Company %s is under media pressure.

Coverage profile: %d articles, exposure sum %.1f, max single exposure %.1f.
Max severity: %d/5. Estimated value at risk: EUR %.0f.
Historical precedents (confidence %s):
%s
Key historical lesson: %s

Provide a JSON object with:
1. "alert_level": one of "IGNORE", "LOW", "MEDIUM", "HIGH", "CRITICAL".
2. "alert_reasoning": 1-2 sentences.
3. "strategies": EXACTLY three response strategies, each an object with
   "name", "tone", "channels" (array of strings), "cost_estimate_eur"
   (number), "impact" (one sentence), "roi_score" (integer 1-10),
   "recommended" (boolean, true for exactly one strategy).
4. "decision_summary": 2-3 sentences tying the recommendation to the
   precedents and the value at risk.
5. "press_release": a short draft press release (markdown).
6. "internal_email": a short draft all-hands email (markdown).
7. "social_post": a single draft social media post.`,
		input.Subject, input.Profile.Count, input.Profile.Sum, input.Profile.Max,
		input.MaxSeverity, input.TotalValueAtRisk, input.Confidence,
		strings.Join(cases, "\n"), clip(input.GlobalLesson, 300))
}

func categoryList() string {
	var names []string
	for _, c := range signal.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
