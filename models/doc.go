// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreatePollRequest: prompt, sessionId (optional, from the live channel)
  - AskQuestionRequest: question

# Response Types

  - Poll: the stored survey
  - AskQuestionResponse: answer
  - ErrorResponse: error, message

# Domain Types

  - SurveyContent: topic, summary, personas, questions, followupResponses
  - Persona, SurveyQuestion, DemographicResponse, FollowupResponse
  - AnalysisStep: one progress step (planning, questions, personas, complete)
  - Percentage: agreement score that also decodes "45" and "45%"

# Live Messages

	{"type":"connected","sessionId":"..."}            server → client
	{"type":"subscribe","pollId":1,"sessionId":"..."} client → server
	{"type":"analysisStep","step":{...},"pollId":0}   server → client

# Validation

Validate checks struct tags on requests and decoded LLM output and names
the offending fields by their JSON path, e.g. questions[0].agreement.
*/
package models
