// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/opinion-sim/models"
)

var ErrNotFound = errors.New("poll not found")

// PollStore inserts and fetches poll rows. Polls are immutable once created.
type PollStore struct {
	db      *sql.DB
	dialect string
}

func NewPollStore(db *sql.DB, dialect string) *PollStore {
	return &PollStore{db: db, dialect: dialect}
}

// Create inserts p and returns the stored poll with its generated id
func (s *PollStore) Create(ctx context.Context, p models.NewPoll) (models.Poll, error) {
	poll := models.Poll{
		Topic:             p.Topic,
		Prompt:            p.Prompt,
		Summary:           p.Summary,
		Personas:          nonNil(p.Personas),
		Questions:         nonNil(p.Questions),
		FollowupResponses: nonNil(p.FollowupResponses),
		AnalysisSteps:     nonNil(p.AnalysisSteps),
	}

	createdAt := p.CreatedAt.UTC().Format(time.RFC3339Nano)
	poll.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	personas, err := json.Marshal(poll.Personas)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to encode personas: %w", err)
	}
	questions, err := json.Marshal(poll.Questions)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to encode questions: %w", err)
	}
	followups, err := json.Marshal(poll.FollowupResponses)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to encode follow-up responses: %w", err)
	}
	steps, err := json.Marshal(poll.AnalysisSteps)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to encode analysis steps: %w", err)
	}

	err = s.db.QueryRowContext(ctx, rebind(s.dialect, `
		INSERT INTO polls (topic, prompt, summary, personas, questions, followup_responses, created_at, analysis_steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`), poll.Topic, poll.Prompt, poll.Summary,
		string(personas), string(questions), string(followups),
		createdAt, string(steps),
	).Scan(&poll.ID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	return poll, nil
}

// Get returns the poll with id, or ErrNotFound
func (s *PollStore) Get(ctx context.Context, id int) (models.Poll, error) {
	var poll models.Poll
	var createdAt string
	var personas, questions, followups, steps []byte

	err := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT id, topic, prompt, summary, personas, questions,
		       followup_responses, created_at, analysis_steps
		FROM polls
		WHERE id = $1
	`), id).Scan(
		&poll.ID, &poll.Topic, &poll.Prompt, &poll.Summary, &personas, &questions,
		&followups, &createdAt, &steps,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	poll.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Poll{}, fmt.Errorf("poll %d has invalid created_at: %w", id, err)
	}

	for _, col := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"personas", personas, &poll.Personas},
		{"questions", questions, &poll.Questions},
		{"followup_responses", followups, &poll.FollowupResponses},
		{"analysis_steps", steps, &poll.AnalysisSteps},
	} {
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return models.Poll{}, fmt.Errorf("poll %d has invalid %s: %w", id, col.name, err)
		}
	}

	return poll, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
