package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/domain/precedent"
	"crisiswatch/domain/signal"
	"crisiswatch/domain/state"
	"crisiswatch/domain/strategy"
	"crisiswatch/ports"
)

// StrategyStage is stage 4: converges the research and scoring branches
// into an alert level, three response strategies with exactly one
// recommendation, and communication drafts.
type StrategyStage struct {
	completions ports.CompleterFactory
	creds       ports.CredentialPool
}

// NewStrategyStage wires stage 4
func NewStrategyStage(completions ports.CompleterFactory, creds ports.CredentialPool) *StrategyStage {
	return &StrategyStage{
		completions: completions,
		creds:       creds,
	}
}

func (s *StrategyStage) Name() string { return StageStrategy }

func (s *StrategyStage) Inputs() []state.Key {
	return []state.Key{
		state.KeySubjectName,
		state.KeySignalItems,
		state.KeyPrecedentCases,
		state.KeyGlobalLesson,
		state.KeyConfidenceLevel,
		state.KeyTotalValueAtRisk,
		state.KeyMaxSeverity,
	}
}

func (s *StrategyStage) Outputs() []state.Key {
	return []state.Key{state.KeyStrategyReport, state.KeyStrategyCost}
}

func (s *StrategyStage) Timeout() time.Duration { return 180 * time.Second }

func (s *StrategyStage) MaxRetries() int { return 0 }

// strategyInput aggregates the converged upstream outputs for the prompt
type strategyInput struct {
	Subject          string
	Profile          signal.ExposureProfile
	MaxSeverity      int
	TotalValueAtRisk float64
	Cases            []precedent.Case
	Confidence       precedent.ConfidenceLevel
	GlobalLesson     string
}

// strategyResponse is the synthesis response schema
type strategyResponse struct {
	AlertLevel      string           `json:"alert_level"`
	AlertReasoning  string           `json:"alert_reasoning"`
	Strategies      []optionResponse `json:"strategies"`
	DecisionSummary string           `json:"decision_summary"`
	PressRelease    string           `json:"press_release"`
	InternalEmail   string           `json:"internal_email"`
	SocialPost      string           `json:"social_post"`
}

type optionResponse struct {
	Name            string   `json:"name"`
	Tone            string   `json:"tone"`
	Channels        []string `json:"channels"`
	CostEstimateEUR float64  `json:"cost_estimate_eur"`
	Impact          string   `json:"impact"`
	ROIScore        int      `json:"roi_score"`
	Recommended     bool     `json:"recommended"`
}

func (s *StrategyStage) Run(ctx context.Context, acc *state.Access) error {
	input, err := s.loadInput(acc)
	if err != nil {
		return err
	}

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire credential: %v", core.ErrExternalService, err)
	}
	defer s.creds.Release(cred)
	llm := s.completions.WithCredential(cred)

	var resp strategyResponse
	req := ports.CompletionRequest{
		System:    analystSystem,
		Prompt:    strategySynthesisPrompt(*input),
		MaxTokens: 4000,
	}
	if err := llm.Complete(ctx, req, &resp); err != nil {
		return err
	}

	report, err := s.buildReport(resp)
	if err != nil {
		return err
	}
	log.Printf("[Strategy] Alert %s | recommended %q | %d drafts",
		report.AlertLevel, report.RecommendedStrategy, report.Drafts.Count())

	if err := acc.Set(state.KeyStrategyReport, *report); err != nil {
		return err
	}
	return acc.Set(state.KeyStrategyCost, completionCost(1))
}

func (s *StrategyStage) loadInput(acc *state.Access) (*strategyInput, error) {
	subject, err := state.Get[string](acc, state.KeySubjectName)
	if err != nil {
		return nil, err
	}
	items, err := state.Get[[]signal.Item](acc, state.KeySignalItems)
	if err != nil {
		return nil, err
	}
	cases, err := state.Get[[]precedent.Case](acc, state.KeyPrecedentCases)
	if err != nil {
		return nil, err
	}
	lesson, err := state.Get[string](acc, state.KeyGlobalLesson)
	if err != nil {
		return nil, err
	}
	confidence, err := state.Get[precedent.ConfidenceLevel](acc, state.KeyConfidenceLevel)
	if err != nil {
		return nil, err
	}
	totalVaR, err := state.Get[float64](acc, state.KeyTotalValueAtRisk)
	if err != nil {
		return nil, err
	}
	maxSeverity, err := state.Get[int](acc, state.KeyMaxSeverity)
	if err != nil {
		return nil, err
	}
	return &strategyInput{
		Subject:          subject,
		Profile:          signal.ProfileExposure(items),
		MaxSeverity:      maxSeverity,
		TotalValueAtRisk: totalVaR,
		Cases:            cases,
		Confidence:       confidence,
		GlobalLesson:     lesson,
	}, nil
}

func (s *StrategyStage) buildReport(resp strategyResponse) (*strategy.Report, error) {
	if len(resp.Strategies) != 3 {
		return nil, fmt.Errorf("%w: expected exactly 3 strategies, model returned %d", core.ErrCompletionFailed, len(resp.Strategies))
	}
	level := strategy.AlertLevel(resp.AlertLevel)
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: unknown alert level %q", core.ErrCompletionFailed, resp.AlertLevel)
	}

	report := strategy.Report{
		AlertLevel:      level,
		AlertReasoning:  resp.AlertReasoning,
		DecisionSummary: resp.DecisionSummary,
		Drafts: strategy.Drafts{
			PressRelease:  resp.PressRelease,
			InternalEmail: resp.InternalEmail,
			SocialPost:    resp.SocialPost,
		},
	}
	for _, opt := range resp.Strategies {
		report.Strategies = append(report.Strategies, strategy.Option{
			Name:         opt.Name,
			Tone:         opt.Tone,
			Channels:     opt.Channels,
			CostEstimate: opt.CostEstimateEUR,
			Impact:       opt.Impact,
			ROIScore:     clampScore(opt.ROIScore),
			Recommended:  opt.Recommended,
		})
	}
	report.Normalize()
	return &report, nil
}
