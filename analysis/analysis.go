// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/opinion-sim/llm"
	"github.com/danielhkuo/opinion-sim/metrics"
	"github.com/danielhkuo/opinion-sim/models"
	"github.com/danielhkuo/opinion-sim/prompts"
	"github.com/danielhkuo/opinion-sim/ratelimit"
)

var (
	// ErrQuotaExceeded means the process call budget is spent
	ErrQuotaExceeded = errors.New("API call limit reached")
	// ErrGenerationFailed wraps every other failure of an LLM round trip
	ErrGenerationFailed = errors.New("generation failed")
	// ErrMalformedResponse is a GenerationFailed whose cause is unusable LLM output
	ErrMalformedResponse = fmt.Errorf("%w: malformed LLM response", ErrGenerationFailed)
)

// DefaultStepDelay paces the first progress steps so clients can show them
const DefaultStepDelay = time.Second

// FallbackAnswer is returned when the provider answers with empty content
const FallbackAnswer = "I apologize, but I couldn't generate a response."

var stepMessages = map[string]string{
	models.StepPlanning:  "Analyzing the topic and planning the survey structure...",
	models.StepQuestions: fmt.Sprintf("Formulating %d comprehensive survey questions to explore the topic...", prompts.QuestionCount),
	models.StepPersonas:  "Creating diverse voter profiles and analyzing their detailed perspectives...",
	models.StepComplete:  "Analysis complete! Generating comprehensive report with expanded survey data...",
}

type Options struct {
	// StepDelay is the pause before the questions and personas steps. Zero disables it.
	StepDelay time.Duration
	// StrictCardinality rejects output where a question lacks a response
	// per persona or a persona lacks exactly two follow-ups.
	StrictCardinality bool
	Metrics           *metrics.Metrics
	// Now defaults to time.Now
	Now func() time.Time
}

// Service generates surveys and answers questions about them. Both
// operations draw from the same call budget.
type Service struct {
	client llm.Client
	budget *ratelimit.CallBudget
	opts   Options
}

func NewService(client llm.Client, budget *ratelimit.CallBudget, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{client: client, budget: budget, opts: opts}
}

// Result is a generated survey ready to be persisted
type Result struct {
	models.SurveyContent
	Prompt        string
	AnalysisSteps []models.AnalysisStep
}

// ProgressFunc receives each step as it is produced
type ProgressFunc func(step models.AnalysisStep)

// Generate runs one survey simulation for prompt. Steps are reported to
// onProgress (may be nil) in the order planning, questions, personas,
// complete. A quota denial returns before any step or network call.
func (s *Service) Generate(ctx context.Context, prompt string, onProgress ProgressFunc) (Result, error) {
	if err := s.consume(); err != nil {
		return Result{}, err
	}

	start := s.opts.Now()
	defer func() { s.opts.Metrics.ObserveGeneration(s.opts.Now().Sub(start)) }()

	steps := make([]models.AnalysisStep, 0, 4)
	emit := func(stepType string) {
		step := models.AnalysisStep{
			Type:      stepType,
			Message:   stepMessages[stepType],
			Timestamp: s.opts.Now(),
		}
		steps = append(steps, step)
		if onProgress != nil {
			onProgress(step)
		}
	}

	emit(models.StepPlanning)
	if err := s.pause(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	emit(models.StepQuestions)
	if err := s.pause(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	emit(models.StepPersonas)

	raw, err := s.client.Complete(ctx, llm.Request{
		System: prompts.SurveySystemPrompt,
		User:   prompts.BuildSurveyPrompt(prompt),
		JSON:   true,
	})
	if err != nil {
		s.opts.Metrics.LLMCall(metrics.OpGenerate, metrics.OutcomeError)
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	content, err := s.decode(raw)
	if err != nil {
		s.opts.Metrics.LLMCall(metrics.OpGenerate, metrics.OutcomeMalformed)
		slog.Warn("discarding malformed survey", "error", err, "bytes", len(raw))
		return Result{}, err
	}
	s.opts.Metrics.LLMCall(metrics.OpGenerate, metrics.OutcomeSuccess)

	emit(models.StepComplete)

	return Result{
		SurveyContent: content,
		Prompt:        prompt,
		AnalysisSteps: steps,
	}, nil
}

// Answer asks the LLM a free-text question about a stored poll
func (s *Service) Answer(ctx context.Context, question string, poll models.SurveyContent) (string, error) {
	if err := s.consume(); err != nil {
		return "", err
	}

	user, err := prompts.BuildAnswerPrompt(question, poll)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	answer, err := s.client.Complete(ctx, llm.Request{
		System: prompts.AnswerSystemPrompt,
		User:   user,
	})
	if err != nil {
		s.opts.Metrics.LLMCall(metrics.OpAnswer, metrics.OutcomeError)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	s.opts.Metrics.LLMCall(metrics.OpAnswer, metrics.OutcomeSuccess)

	if strings.TrimSpace(answer) == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

func (s *Service) consume() error {
	if s.budget.TryConsume() {
		return nil
	}
	s.opts.Metrics.QuotaDenied()
	return fmt.Errorf("%w (%d calls). Please try again later.", ErrQuotaExceeded, s.budget.Limit())
}

func (s *Service) pause(ctx context.Context) error {
	if s.opts.StepDelay <= 0 {
		return nil
	}

	t := time.NewTimer(s.opts.StepDelay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decode turns raw LLM text into validated survey content
func (s *Service) decode(raw string) (models.SurveyContent, error) {
	var content models.SurveyContent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &content); err != nil {
		return models.SurveyContent{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if err := models.Validate(content); err != nil {
		return models.SurveyContent{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if content.FollowupResponses == nil {
		content.FollowupResponses = []models.FollowupResponse{}
	}
	for i := range content.Questions {
		if content.Questions[i].Responses == nil {
			content.Questions[i].Responses = []models.DemographicResponse{}
		}
	}

	if s.opts.StrictCardinality {
		if err := checkCardinality(content); err != nil {
			return models.SurveyContent{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}

	return content, nil
}

// extractJSON strips a markdown code fence if the provider added one
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// checkCardinality enforces one response per persona per question and
// exactly two follow-ups per persona
func checkCardinality(c models.SurveyContent) error {
	personas := make(map[string]bool, len(c.Personas))
	for _, p := range c.Personas {
		personas[p.Demographic] = true
	}

	for i, q := range c.Questions {
		if len(q.Responses) != len(c.Personas) {
			return fmt.Errorf("question %d has %d responses for %d personas", i+1, len(q.Responses), len(c.Personas))
		}
		for _, r := range q.Responses {
			if !personas[r.Demographic] {
				return fmt.Errorf("question %d has a response from unknown demographic %q", i+1, r.Demographic)
			}
		}
	}

	followups := make(map[string]int, len(c.Personas))
	for _, f := range c.FollowupResponses {
		followups[f.Demographic]++
	}
	for _, p := range c.Personas {
		if n := followups[p.Demographic]; n != prompts.FollowupsPerPersona {
			return fmt.Errorf("persona %q has %d follow-ups, want %d", p.Demographic, n, prompts.FollowupsPerPersona)
		}
	}

	return nil
}
