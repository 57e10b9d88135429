package report

import (
	"strings"
	"testing"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/strategy"
)

func sampleInput() Input {
	return Input{
		Subject:          "Acme Corp",
		RunID:            "run-123",
		TotalValueAtRisk: 48000,
		Report: strategy.Report{
			AlertLevel:     strategy.AlertHigh,
			AlertReasoning: "Breach coverage is accelerating.",
			Strategies: []strategy.Option{
				{Name: "Proactive disclosure", Tone: "direct", Channels: []string{"press", "email"},
					CostEstimate: 12000, Impact: "Controls the narrative.", ROIScore: 8, Recommended: true},
				{Name: "Quiet remediation", Tone: "measured", Channels: []string{"support"},
					CostEstimate: 4000, Impact: "Lower visibility.", ROIScore: 5},
				{Name: "Full counter-campaign", Tone: "assertive", Channels: []string{"social"},
					CostEstimate: 30000, Impact: "High risk of backlash.", ROIScore: 3},
			},
			RecommendedStrategy: "Proactive disclosure",
			DecisionSummary:     "Disclose before the weekend news cycle.",
			Drafts:              strategy.Drafts{PressRelease: "Acme confirms the incident."},
		},
		Cases: []precedent.Case{
			{Company: "Maersk", Year: 2017, Crisis: "NotPetya outage",
				StrategyUsed: "daily updates", Outcome: "recovered", SuccessScore: 8,
				Lesson: "disclose fast", SourceURL: "https://archive.test/maersk"},
		},
		Confidence:   precedent.ConfidenceMedium,
		GlobalLesson: "disclose fast",
		Invoice: &billing.Invoice{
			Summary: "3 line items",
			LineItems: []billing.LineItem{
				{Stage: "research", HumanEquivalentEUR: 450, ComputeCostEUR: 0.024, MarginPercent: 99.99},
			},
		},
	}
}

func TestBuildMarkdownSections(t *testing.T) {
	md := BuildMarkdown(sampleInput())

	for _, want := range []string{
		"# Crisis Report: Acme Corp",
		"## Alert: HIGH",
		"### Proactive disclosure (recommended)",
		"### Quiet remediation\n",
		"## Historical Precedents (confidence: medium)",
		"### Maersk (2017)",
		"**Key lesson:** disclose fast",
		"### Press Release",
		"| research | EUR 450.00 | EUR 0.0240 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestBuildMarkdownRefusal(t *testing.T) {
	in := sampleInput()
	in.Invoice = &billing.Invoice{
		ActionRefused: true,
		RefusalReason: "Alert level IGNORE: no action to bill.",
		LineItems:     []billing.LineItem{},
	}
	md := BuildMarkdown(in)
	if !strings.Contains(md, "no action to bill") {
		t.Error("refusal reason not rendered")
	}
	if strings.Contains(md, "| Stage |") {
		t.Error("refused invoice must not render a line-item table")
	}
}

func TestBuildMarkdownNoCases(t *testing.T) {
	in := sampleInput()
	in.Cases = nil
	in.GlobalLesson = ""
	md := BuildMarkdown(in)
	if !strings.Contains(md, "No verified precedent cases found.") {
		t.Error("empty case set not reported")
	}
	if strings.Contains(md, "Key lesson") {
		t.Error("lesson rendered without cases")
	}
}

func TestRenderHTMLCompletePage(t *testing.T) {
	page := string(RenderHTML("Acme Corp", BuildMarkdown(sampleInput())))
	for _, want := range []string{
		"<title>Acme Corp</title>",
		"Crisis Report: Acme Corp</h1>",
		"<table>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
}
