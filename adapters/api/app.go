package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crisiswatch/app"
	"crisiswatch/ports"
)

// App is the HTTP surface over the pipeline service
type App struct {
	router  *chi.Mux
	service *app.Service
	runs    ports.RunRepository // nil disables the persistence-backed endpoints
	hub     *Hub
	tables  app.Tables

	mu      sync.Mutex
	results map[string]*app.RunResult // recent results kept for report rendering
}

// Config holds HTTP server configuration
type Config struct {
	Port string
}

// NewApp wires the router around an assembled pipeline service
func NewApp(service *app.Service, hub *Hub, runs ports.RunRepository, tables app.Tables) *App {
	a := &App{
		router:  chi.NewRouter(),
		service: service,
		runs:    runs,
		hub:     hub,
		tables:  tables,
		results: make(map[string]*app.RunResult),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)

	// Pipeline entry points
	a.router.Post("/api/runs", a.handleFullRun)
	a.router.Post("/api/crisis-response", a.handleSubsetRun)

	// Run inspection
	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Get("/api/runs/{id}", a.handleGetRun)
	a.router.Get("/api/runs/{id}/report", a.handleRunReport)

	// Progress stream
	a.router.Get("/api/events", a.handleEvents)
}

// Start starts the HTTP server
func (a *App) Start(config Config) error {
	port := config.Port
	if port == "" {
		port = ":8080"
	}
	log.Printf("[API] Starting crisiswatch server on %s", port)
	return http.ListenAndServe(port, a.router)
}

// Handler exposes the router for tests
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) remember(result *app.RunResult) {
	a.mu.Lock()
	a.results[result.RunID.String()] = result
	a.mu.Unlock()
}

func (a *App) recall(runID string) (*app.RunResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result, ok := a.results[runID]
	return result, ok
}
