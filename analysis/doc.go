// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package analysis generates simulated surveys and answers questions about them.

# Generation

	svc := analysis.NewService(client, budget, analysis.Options{StepDelay: time.Second})
	result, err := svc.Generate(ctx, "death penalty in the UK", func(step models.AnalysisStep) {
		hub.Broadcast(live.Event{SessionID: session, Step: step})
	})

Generate spends one unit of the call budget, reports the planning,
questions and personas steps (paced by StepDelay), makes one JSON-mode
LLM call, validates the decoded survey and reports complete.

# Answers

	answer, err := svc.Answer(ctx, "Who supports it most?", poll.Content())

Answer spends one unit and makes one free-text call with the poll as
context.

# Errors

  - ErrQuotaExceeded: the budget is spent; nothing was sent to the provider
  - ErrGenerationFailed: provider, network or context failure
  - ErrMalformedResponse: the provider answered with unusable output;
    also matches ErrGenerationFailed
*/
package analysis
