package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"crisiswatch/adapters/report"
	"crisiswatch/app"
	"crisiswatch/domain/core"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/scoring"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fullRunRequest struct {
	Subject string `json:"subject"`
}

// handleFullRun runs the whole pipeline synchronously. Progress is
// available on /api/events while the request is in flight.
func (a *App) handleFullRun(w http.ResponseWriter, r *http.Request) {
	var req fullRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("subject is required"))
		return
	}

	result, err := a.service.RunFull(r.Context(), req.Subject)
	a.respondWithResult(w, result, err)
}

type subsetItemRequest struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	SourceURL   string `json:"source_url"`
	PublishedAt string `json:"published_at"`
	Category    string `json:"category"`
	Authority   int    `json:"authority"`
	Severity    int    `json:"severity"`
	Sentiment   string `json:"sentiment"`
	Content     string `json:"content"`
}

type subsetRunRequest struct {
	Subject      string              `json:"subject"`
	TopicTitle   string              `json:"topic_title"`
	TopicSummary string              `json:"topic_summary"`
	Items        []subsetItemRequest `json:"items"`
}

// handleSubsetRun analyzes caller-supplied evidence: research and scoring
// in parallel, then synthesis, then billing. Collection is skipped.
func (a *App) handleSubsetRun(w http.ResponseWriter, r *http.Request) {
	var req subsetRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("subject is required"))
		return
	}

	items := make([]signal.Item, 0, len(req.Items))
	for i, raw := range req.Items {
		item, err := a.buildItem(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("item %d: %w", i, err))
			return
		}
		items = append(items, item)
	}

	result, err := a.service.RunSubset(r.Context(), app.SeedData{
		Subject:      req.Subject,
		TopicTitle:   req.TopicTitle,
		TopicSummary: req.TopicSummary,
		Items:        items,
	})
	a.respondWithResult(w, result, err)
}

// buildItem validates one caller-supplied item and scores its exposure
// with the same tables the collection stage uses.
func (a *App) buildItem(raw subsetItemRequest) (signal.Item, error) {
	category := signal.Category(raw.Category)
	if !category.IsValid() {
		return signal.Item{}, fmt.Errorf("unknown category %q", raw.Category)
	}
	sentiment := signal.Sentiment(raw.Sentiment)
	if raw.Sentiment == "" {
		sentiment = signal.SentimentNeutral
	}
	if !sentiment.IsValid() {
		return signal.Item{}, fmt.Errorf("unknown sentiment %q", raw.Sentiment)
	}

	var publishedAt *core.Timestamp
	if raw.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339, raw.PublishedAt)
		if err != nil {
			return signal.Item{}, fmt.Errorf("published_at must be RFC3339: %w", err)
		}
		ts := core.NewTimestamp(t)
		publishedAt = &ts
	}

	recency := a.tables.Decay.RecencyMultiplier(publishedAt, time.Now())
	exposure, err := scoring.ExposureScore(raw.Authority, raw.Severity, recency,
		a.tables.Topics.Weight(category), a.tables.Sentiments.Weight(sentiment))
	if err != nil {
		return signal.Item{}, err
	}

	return signal.Item{
		ID:                core.SignalID(core.NewID()),
		Title:             raw.Title,
		Summary:           raw.Summary,
		SourceURL:         raw.SourceURL,
		PublishedAt:       publishedAt,
		Category:          category,
		Authority:         raw.Authority,
		Severity:          raw.Severity,
		Sentiment:         sentiment,
		RecencyMultiplier: recency,
		ExposureScore:     exposure,
		Content:           raw.Content,
	}, nil
}

// runResponse is the API projection of a finished run
type runResponse struct {
	RunID            string           `json:"run_id"`
	CustomerID       string           `json:"customer_id"`
	Subject          string           `json:"subject"`
	State            string           `json:"state"`
	StartedAt        string           `json:"started_at"`
	FinishedAt       string           `json:"finished_at"`
	TotalValueAtRisk float64          `json:"total_value_at_risk"`
	Report           *strategyView    `json:"report,omitempty"`
	Invoice          interface{}      `json:"invoice,omitempty"`
	Cases            []precedent.Case `json:"precedent_cases,omitempty"`
	Error            string           `json:"error,omitempty"`
}

type strategyView struct {
	AlertLevel          string `json:"alert_level"`
	RecommendedStrategy string `json:"recommended_strategy"`
	DecisionSummary     string `json:"decision_summary"`
}

func (a *App) respondWithResult(w http.ResponseWriter, result *app.RunResult, runErr error) {
	if result == nil {
		writeError(w, http.StatusBadRequest, runErr)
		return
	}
	a.remember(result)

	finished := RunFinishedEvent{State: string(result.State)}
	if rep, ok := result.StrategyReport(); ok {
		finished.AlertLevel = string(rep.AlertLevel)
	}
	a.hub.Publish(&Event{
		EventType: EventRunFinished,
		RunID:     result.RunID.String(),
		Timestamp: time.Now(),
		Data:      finished,
	})

	resp := runResponse{
		RunID:      result.RunID.String(),
		CustomerID: result.CustomerID.String(),
		Subject:    result.Subject,
		State:      string(result.State),
		StartedAt:  result.StartedAt.String(),
		FinishedAt: result.FinishedAt.String(),
	}
	if totalVaR, ok := state.Lookup[float64](result.Snapshot, state.KeyTotalValueAtRisk); ok {
		resp.TotalValueAtRisk = totalVaR
	}
	if rep, ok := result.StrategyReport(); ok {
		resp.Report = &strategyView{
			AlertLevel:          string(rep.AlertLevel),
			RecommendedStrategy: rep.RecommendedStrategy,
			DecisionSummary:     rep.DecisionSummary,
		}
	}
	if inv, ok := result.Invoice(); ok {
		resp.Invoice = inv
	}
	if cases, ok := state.Lookup[[]precedent.Case](result.Snapshot, state.KeyPrecedentCases); ok {
		resp.Cases = cases
	}

	status := http.StatusOK
	if runErr != nil {
		resp.Error = runErr.Error()
		status = http.StatusBadGateway
		if core.IsValidationError(runErr) || core.IsContractViolation(runErr) {
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, resp)
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("run persistence is disabled"))
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := a.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("run persistence is disabled"))
		return
	}
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := a.runs.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRunReport renders the full crisis report for a recent run as HTML
func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	result, ok := a.recall(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no report held for run %s", runID))
		return
	}
	rep, ok := result.StrategyReport()
	if !ok {
		writeError(w, http.StatusConflict, fmt.Errorf("run %s produced no strategy report", runID))
		return
	}

	in := report.Input{
		Subject: result.Subject,
		RunID:   runID,
		Report:  *rep,
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
	if inv, ok := result.Invoice(); ok {
		in.Invoice = inv
	}

	md := report.BuildMarkdown(in)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.RenderHTML("Crisis Report: "+result.Subject, md))
}

// handleEvents streams pipeline progress as server-sent events
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := a.hub.Subscribe()
	defer a.hub.Unsubscribe(ch)
	log.Printf("[API] SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Printf("[API] SSE client disconnected")
			return
		case event, open := <-ch:
			if !open {
				return
			}
			fmt.Fprint(w, event.ToSSEFormat())
			flusher.Flush()
		}
	}
}
