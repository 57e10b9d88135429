package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"crisiswatch/adapters/excel"
	"crisiswatch/adapters/extract"
	reportadapter "crisiswatch/adapters/report"
	"crisiswatch/adapters/search"
	"crisiswatch/ai"
	"crisiswatch/app"
	"crisiswatch/domain/core"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/state"
	"crisiswatch/internal/config"
	"crisiswatch/internal/credpool"
	"crisiswatch/ports"
)

// consoleObserver prints stage progress as the run advances
type consoleObserver struct{}

func (consoleObserver) StageStarted(runID core.RunID, stage string) {
	fmt.Printf("  -> %s\n", stage)
}

func (consoleObserver) StageFinished(runID core.RunID, stage string, err error) {
	if err != nil {
		fmt.Printf("  <- %s FAILED: %v\n", stage, err)
		return
	}
	fmt.Printf("  <- %s done\n", stage)
}

func main() {
	subject := flag.String("subject", "", "company or person to analyze (required)")
	invoicePath := flag.String("invoice-xlsx", "", "write the invoice as a spreadsheet to this path")
	reportPath := flag.String("report-html", "", "write the full crisis report as HTML to this path")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall run deadline")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	service, err := buildService(cfg)
	if err != nil {
		log.Fatalf("Failed to assemble pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Analyzing %q\n", *subject)
	result, runErr := service.RunFull(ctx, *subject)
	if result == nil {
		log.Fatalf("Run could not start: %v", runErr)
	}

	printSummary(result)
	writeArtifacts(result, *invoicePath, *reportPath)

	if runErr != nil {
		os.Exit(1)
	}
}

func buildService(cfg *config.Config) (*app.Service, error) {
	searcher, err := search.NewTavilyClient(search.Config{
		APIKey:  cfg.Search.TavilyKey,
		BaseURL: cfg.Search.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	creds, err := credpool.FromKeysSized(app.MaxConcurrentStages, cfg.AI.Keys...)
	if err != nil {
		return nil, err
	}

	completions := ai.NewFactory(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})

	return app.NewService(app.Deps{
		Search: searcher,
		Extractor: extract.NewReaderClient(extract.Config{
			BaseURL: cfg.Extract.BaseURL,
			APIKey:  cfg.Extract.ReaderKey,
		}),
		Completions:   completions,
		Credentials:   creds,
		Tables:        app.DefaultTables(),
		Observer:      consoleObserver{},
		SearchRetries: cfg.Pipeline.SearchRetries,
	}), nil
}

func printSummary(result *app.RunResult) {
	fmt.Printf("\nRun %s finished: %s\n", result.RunID, result.State)

	if totalVaR, ok := state.Lookup[float64](result.Snapshot, state.KeyTotalValueAtRisk); ok {
		fmt.Printf("Estimated value at risk: EUR %.0f\n", totalVaR)
	}
	if cases, ok := state.Lookup[[]precedent.Case](result.Snapshot, state.KeyPrecedentCases); ok {
		fmt.Printf("Verified precedent cases: %d\n", len(cases))
	}
	if report, ok := result.StrategyReport(); ok {
		fmt.Printf("Alert level: %s\n", report.AlertLevel)
		fmt.Printf("Recommended strategy: %s\n", report.RecommendedStrategy)
		fmt.Printf("Decision: %s\n", report.DecisionSummary)
	}
	if invoice, ok := result.Invoice(); ok {
		if invoice.ActionRefused {
			fmt.Printf("Billing: refused. %s\n", invoice.RefusalReason)
		} else {
			fmt.Printf("Billing: %s\n", invoice.Summary)
		}
	}
}

func writeArtifacts(result *app.RunResult, invoicePath, reportPath string) {
	if invoicePath != "" {
		rec := ports.RunRecord{
			RunID:      result.RunID,
			CustomerID: result.CustomerID,
			Subject:    result.Subject,
			Status:     string(result.State),
		}
		if totalVaR, ok := state.Lookup[float64](result.Snapshot, state.KeyTotalValueAtRisk); ok {
			rec.TotalValueAtRisk = totalVaR
		}
		if report, ok := result.StrategyReport(); ok {
			rec.AlertLevel = report.AlertLevel
		}
		if invoice, ok := result.Invoice(); ok {
			rec.Invoice = invoice
		}
		if err := excel.WriteInvoiceXLSX(invoicePath, rec); err != nil {
			log.Printf("Failed to write invoice spreadsheet: %v", err)
		} else {
			fmt.Printf("Invoice written to %s\n", invoicePath)
		}
	}

	if reportPath != "" {
		report, ok := result.StrategyReport()
		if !ok {
			log.Printf("No strategy report to write")
			return
		}
		in := reportadapter.Input{
			Subject: result.Subject,
			RunID:   result.RunID.String(),
			Report:  *report,
		}
		if totalVaR, ok := state.Lookup[float64](result.Snapshot, state.KeyTotalValueAtRisk); ok {
			in.TotalValueAtRisk = totalVaR
		}
		if cases, ok := state.Lookup[[]precedent.Case](result.Snapshot, state.KeyPrecedentCases); ok {
			in.Cases = cases
		}
		if conf, ok := state.Lookup[precedent.ConfidenceLevel](result.Snapshot, state.KeyConfidenceLevel); ok {
			in.Confidence = conf
		}
		if lesson, ok := state.Lookup[string](result.Snapshot, state.KeyGlobalLesson); ok {
			in.GlobalLesson = lesson
		}
		if invoice, ok := result.Invoice(); ok {
			in.Invoice = invoice
		}

		md := reportadapter.BuildMarkdown(in)
		html := reportadapter.RenderHTML("Crisis Report: "+result.Subject, md)
		if err := os.WriteFile(reportPath, html, 0o644); err != nil {
			log.Printf("Failed to write report: %v", err)
		} else {
			fmt.Printf("Report written to %s\n", reportPath)
		}
	}
}
