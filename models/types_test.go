// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPercentageUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Percentage
		wantErr bool
	}{
		{"integer", `45`, 45, false},
		{"float", `62.5`, 62.5, false},
		{"numeric string", `"45"`, 45, false},
		{"percent string", `"70%"`, 70, false},
		{"padded string", `" 12 % "`, 12, false},
		{"null", `null`, 0, false},
		{"word", `"most"`, 0, true},
		{"object", `{}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Percentage
			err := json.Unmarshal([]byte(tt.input), &p)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s, got %v", tt.input, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, p)
			}
		})
	}
}

func TestValidateSurveyContent(t *testing.T) {
	valid := SurveyContent{
		Topic:     "Capital punishment",
		Summary:   "Opinions are divided.",
		Personas:  []Persona{{Demographic: "Retirees"}},
		Questions: []SurveyQuestion{{Question: "Should it return?", Agreement: Pct(40)}},
	}

	if err := Validate(valid); err != nil {
		t.Fatalf("Expected valid content, got %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(c *SurveyContent)
		wantField string
	}{
		{"missing topic", func(c *SurveyContent) { c.Topic = "" }, "topic"},
		{"missing summary", func(c *SurveyContent) { c.Summary = "" }, "summary"},
		{"no personas", func(c *SurveyContent) { c.Personas = nil }, "personas"},
		{"empty questions", func(c *SurveyContent) { c.Questions = []SurveyQuestion{} }, "questions"},
		{"agreement out of range", func(c *SurveyContent) {
			c.Questions = []SurveyQuestion{{Question: "Q", Agreement: Pct(140)}}
		}, "questions[0].agreement"},
		{"unlabelled response", func(c *SurveyContent) {
			c.Questions = []SurveyQuestion{{Question: "Q", Responses: []DemographicResponse{{Agreement: Pct(10)}}}}
		}, "questions[0].responses[0].demographic"},
		{"question agreement missing", func(c *SurveyContent) {
			c.Questions = []SurveyQuestion{{Question: "Q"}}
		}, "questions[0].agreement (required)"},
		{"response agreement missing", func(c *SurveyContent) {
			c.Questions = []SurveyQuestion{{Question: "Q", Agreement: Pct(50), Responses: []DemographicResponse{{Demographic: "A"}}}}
		}, "questions[0].responses[0].agreement (required)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := Validate(c)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Expected error to mention %q, got %v", tt.wantField, err)
			}
		})
	}
}

func TestValidateCreatePollRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     CreatePollRequest
		wantErr bool
	}{
		{"prompt only", CreatePollRequest{Prompt: "death penalty in the UK"}, false},
		{"with session", CreatePollRequest{Prompt: "x", SessionID: "6f1c2a4e-0d7b-4b8e-9a57-2f6a1c9e8b10"}, false},
		{"empty prompt", CreatePollRequest{}, true},
		{"bad session", CreatePollRequest{Prompt: "x", SessionID: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
