// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/opinion-sim/analysis"
	"github.com/danielhkuo/opinion-sim/db"
	"github.com/danielhkuo/opinion-sim/live"
	"github.com/danielhkuo/opinion-sim/middleware"
	"github.com/danielhkuo/opinion-sim/models"
)

// PollStore persists generated polls
type PollStore interface {
	Create(ctx context.Context, p models.NewPoll) (models.Poll, error)
	Get(ctx context.Context, id int) (models.Poll, error)
}

// Analyst runs the LLM side of a request
type Analyst interface {
	Generate(ctx context.Context, prompt string, onProgress analysis.ProgressFunc) (analysis.Result, error)
	Answer(ctx context.Context, question string, poll models.SurveyContent) (string, error)
}

// Broadcaster receives progress events while a poll is generated
type Broadcaster interface {
	Broadcast(ev live.Event)
}

type PollHandler struct {
	store   PollStore
	analyst Analyst
	live    Broadcaster
	now     func() time.Time
}

func NewPollHandler(store PollStore, analyst Analyst, live Broadcaster) *PollHandler {
	return &PollHandler{store: store, analyst: analyst, live: live, now: time.Now}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := models.Validate(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Generation outlives the client connection so the poll is still stored
	ctx := context.WithoutCancel(r.Context())

	result, err := h.analyst.Generate(ctx, req.Prompt, func(step models.AnalysisStep) {
		h.live.Broadcast(live.Event{SessionID: req.SessionID, Step: step})
	})
	if err != nil {
		writeAnalysisError(w, err, "Failed to generate analysis")
		return
	}

	poll, err := h.store.Create(ctx, models.NewPoll{
		SurveyContent: result.SurveyContent,
		Prompt:        result.Prompt,
		CreatedAt:     h.now(),
		AnalysisSteps: result.AnalysisSteps,
	})
	if err != nil {
		slog.Error("failed to store poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save poll")
		return
	}

	slog.Info("poll created",
		"poll_id", poll.ID,
		"topic", poll.Topic,
		"personas", len(poll.Personas),
		"questions", len(poll.Questions),
	)

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(w, r)
	if !ok {
		return
	}

	poll, ok := h.loadPoll(r.Context(), w, id)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// AskQuestion handles POST /api/polls/{id}/ask
func (h *PollHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(w, r)
	if !ok {
		return
	}

	var req models.AskQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if err := models.Validate(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// The answer spends budget, so finish it even if the client goes away
	ctx := context.WithoutCancel(r.Context())

	poll, ok := h.loadPoll(ctx, w, id)
	if !ok {
		return
	}

	answer, err := h.analyst.Answer(ctx, req.Question, poll.Content())
	if err != nil {
		writeAnalysisError(w, err, "Failed to generate answer")
		return
	}

	slog.Info("question answered", "poll_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.AskQuestionResponse{Answer: answer})
}

func (h *PollHandler) loadPoll(ctx context.Context, w http.ResponseWriter, id int) (models.Poll, bool) {
	poll, err := h.store.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return models.Poll{}, false
	}
	if err != nil {
		slog.Error("failed to query poll", "poll_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Poll{}, false
	}
	return poll, true
}

// pollID reads the {id} path value, answering 400 unless it is a positive integer
func pollID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid poll ID")
		return 0, false
	}
	return id, true
}

// writeAnalysisError maps analysis failures to status codes
func writeAnalysisError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, analysis.ErrQuotaExceeded):
		slog.Warn("call budget exhausted", "error", err)
		middleware.ErrorResponse(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, analysis.ErrMalformedResponse):
		slog.Error("LLM returned an unusable response", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, message+": malformed LLM response")
	default:
		slog.Error("LLM call failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, message)
	}
}
