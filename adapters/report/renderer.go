package report

import (
	"fmt"
	"strings"

	"crisiswatch/domain/billing"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/strategy"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Input carries everything the rendered report shows
type Input struct {
	Subject          string
	RunID            string
	TotalValueAtRisk float64
	Report           strategy.Report
	Cases            []precedent.Case
	Confidence       precedent.ConfidenceLevel
	GlobalLesson     string
	Invoice          *billing.Invoice
}

// BuildMarkdown renders the full crisis report as markdown
func BuildMarkdown(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Crisis Report: %s\n\n", in.Subject)
	fmt.Fprintf(&b, "Run `%s`\n\n", in.RunID)
	fmt.Fprintf(&b, "## Alert: %s\n\n%s\n\n", in.Report.AlertLevel, in.Report.AlertReasoning)
	fmt.Fprintf(&b, "Estimated value at risk: **EUR %.0f**\n\n", in.TotalValueAtRisk)

	b.WriteString("## Response Strategies\n\n")
	for _, opt := range in.Report.Strategies {
		marker := ""
		if opt.Recommended {
			marker = " (recommended)"
		}
		fmt.Fprintf(&b, "### %s%s\n\n", opt.Name, marker)
		fmt.Fprintf(&b, "- Tone: %s\n", opt.Tone)
		fmt.Fprintf(&b, "- Channels: %s\n", strings.Join(opt.Channels, ", "))
		fmt.Fprintf(&b, "- Estimated cost: EUR %.0f\n", opt.CostEstimate)
		fmt.Fprintf(&b, "- ROI score: %d/10\n\n", opt.ROIScore)
		fmt.Fprintf(&b, "%s\n\n", opt.Impact)
	}
	fmt.Fprintf(&b, "**Decision:** %s\n\n", in.Report.DecisionSummary)

	fmt.Fprintf(&b, "## Historical Precedents (confidence: %s)\n\n", in.Confidence)
	if len(in.Cases) == 0 {
		b.WriteString("No verified precedent cases found.\n\n")
	} else {
		for _, c := range in.Cases {
			fmt.Fprintf(&b, "### %s (%d)\n\n", c.Company, c.Year)
			fmt.Fprintf(&b, "%s\n\n", c.Crisis)
			fmt.Fprintf(&b, "- Response: %s\n", c.StrategyUsed)
			fmt.Fprintf(&b, "- Outcome: %s (success %d/10)\n", c.Outcome, c.SuccessScore)
			fmt.Fprintf(&b, "- Lesson: %s\n", c.Lesson)
			if c.SourceURL != "" {
				fmt.Fprintf(&b, "- Source: <%s>\n", c.SourceURL)
			}
			b.WriteString("\n")
		}
		if in.GlobalLesson != "" {
			fmt.Fprintf(&b, "**Key lesson:** %s\n\n", in.GlobalLesson)
		}
	}

	if drafts := in.Report.Drafts; drafts.Count() > 0 {
		b.WriteString("## Communication Drafts\n\n")
		if drafts.PressRelease != "" {
			fmt.Fprintf(&b, "### Press Release\n\n%s\n\n", drafts.PressRelease)
		}
		if drafts.InternalEmail != "" {
			fmt.Fprintf(&b, "### Internal Email\n\n%s\n\n", drafts.InternalEmail)
		}
		if drafts.SocialPost != "" {
			fmt.Fprintf(&b, "### Social Post\n\n%s\n\n", drafts.SocialPost)
		}
	}

	if inv := in.Invoice; inv != nil {
		b.WriteString("## Billing\n\n")
		if inv.ActionRefused {
			fmt.Fprintf(&b, "%s\n\n", inv.RefusalReason)
		} else {
			fmt.Fprintf(&b, "%s\n\n", inv.Summary)
			b.WriteString("| Stage | Human equivalent | Compute cost | Margin |\n")
			b.WriteString("|---|---|---|---|\n")
			for _, item := range inv.LineItems {
				fmt.Fprintf(&b, "| %s | EUR %.2f | EUR %.4f | %.2f%% |\n",
					item.Stage, item.HumanEquivalentEUR, item.ComputeCostEUR, item.MarginPercent)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderHTML converts the markdown report into a standalone HTML page
func RenderHTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}
