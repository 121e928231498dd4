// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil provides shared helpers for package tests.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/opinion-sim/cliparse"
	"github.com/danielhkuo/opinion-sim/db"
	"github.com/danielhkuo/opinion-sim/llm"
	"github.com/danielhkuo/opinion-sim/models"
)

// TestDBURL opens a private in-memory SQLite database
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.DialectSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.DialectSQLite,
		LLMProvider:  llm.ProviderOpenAI,
		LLMAPIKey:    "test-key",
		CallLimit:    50,
		StepDelay:    0,
	}
}

// SampleSurveyJSON is a minimal LLM survey response with one persona and one question
const SampleSurveyJSON = `{
  "topic": "Capital Punishment in the United Kingdom",
  "summary": "A clear majority opposes reintroducing the death penalty.",
  "personas": [
    {
      "demographic": "Retired Northern voters",
      "age": "65+",
      "location": "Yorkshire",
      "background": "Former industrial workers, secondary education",
      "views": "Favour tougher sentencing"
    }
  ],
  "questions": [
    {
      "question": "Should the UK reintroduce the death penalty for murder?",
      "agreement": 38,
      "demographic": "Older voters are more supportive",
      "responses": [
        {
          "demographic": "Retired Northern voters",
          "agreement": 61,
          "reasoning": "See it as a deterrent"
        }
      ]
    }
  ],
  "followupResponses": [
    {
      "demographic": "Retired Northern voters",
      "question": "What changed your view over time?",
      "response": "High-profile cases made me want justice."
    }
  ]
}`

// SampleSurvey is SampleSurveyJSON decoded
func SampleSurvey() models.SurveyContent {
	var c models.SurveyContent
	if err := json.Unmarshal([]byte(SampleSurveyJSON), &c); err != nil {
		panic(err)
	}
	return c
}

// CreateTestPoll stores a poll built from SampleSurvey and returns it
func CreateTestPoll(t *testing.T, conn *sql.DB, prompt string) models.Poll {
	t.Helper()

	now := time.Now()
	steps := make([]models.AnalysisStep, 0, 4)
	for _, typ := range []string{models.StepPlanning, models.StepQuestions, models.StepPersonas, models.StepComplete} {
		steps = append(steps, models.AnalysisStep{Type: typ, Message: typ + "...", Timestamp: now})
	}

	poll, err := db.NewPollStore(conn, db.DialectSQLite).Create(context.Background(), models.NewPoll{
		SurveyContent: SampleSurvey(),
		Prompt:        prompt,
		CreatedAt:     now,
		AnalysisSteps: steps,
	})
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return poll
}

// FakeLLM is a scripted llm.Client that records every request.
// Like a real provider it fails once the caller's context is done.
type FakeLLM struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []llm.Request
}

func NewFakeLLM(response string) *FakeLLM {
	return &FakeLLM{Response: response}
}

// Complete implements llm.Client
func (f *FakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

// Calls returns how many completions were requested
func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// LastRequest returns the most recent request
func (f *FakeLLM) LastRequest() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return llm.Request{}
	}
	return f.Requests[len(f.Requests)-1]
}

// ErrProviderDown is a canned provider failure
var ErrProviderDown = errors.New("provider unavailable")

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var jsonBody []byte
		if raw, ok := body.(string); ok {
			jsonBody = []byte(raw)
		} else {
			jsonBody, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
