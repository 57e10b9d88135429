package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"crisiswatch/adapters/api"
	"crisiswatch/adapters/extract"
	"crisiswatch/adapters/postgres"
	"crisiswatch/adapters/search"
	"crisiswatch/ai"
	"crisiswatch/app"
	"crisiswatch/internal/config"
	"crisiswatch/internal/credpool"
	"crisiswatch/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Persistence is optional: without DATABASE_URL the server still
	// analyzes, it just keeps no history.
	var runs ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		repo := postgres.NewRunRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		runs = repo
		log.Println("Run persistence enabled")
	} else {
		log.Println("DATABASE_URL not set, run persistence disabled")
	}

	searcher, err := search.NewTavilyClient(search.Config{
		APIKey:  cfg.Search.TavilyKey,
		BaseURL: cfg.Search.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create search client: %v", err)
	}

	creds, err := credpool.FromKeysSized(app.MaxConcurrentStages, cfg.AI.Keys...)
	if err != nil {
		log.Fatalf("Failed to build credential pool: %v", err)
	}
	log.Printf("Credential pool holds %d handle(s) over %d key(s)", creds.Size(), len(cfg.AI.Keys))

	completions := ai.NewFactory(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})

	hub := api.NewHub()
	tables := app.DefaultTables()
	service := app.NewService(app.Deps{
		Search: searcher,
		Extractor: extract.NewReaderClient(extract.Config{
			BaseURL: cfg.Extract.BaseURL,
			APIKey:  cfg.Extract.ReaderKey,
		}),
		Completions:   completions,
		Credentials:   creds,
		Tables:        tables,
		Observer:      hub,
		Runs:          runs,
		SearchRetries: cfg.Pipeline.SearchRetries,
	})

	server := api.NewApp(service, hub, runs, tables)
	log.Fatal(server.Start(api.Config{Port: ":" + cfg.Server.Port}))
}
