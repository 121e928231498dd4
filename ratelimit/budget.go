// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ratelimit holds the process-wide LLM call budget.
package ratelimit

import "sync"

// DefaultCallLimit is the number of LLM calls allowed per process
const DefaultCallLimit = 50

// CallBudget caps the total number of LLM calls for the lifetime of the
// process. It never resets; once spent, every TryConsume returns false.
type CallBudget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewCallBudget creates a budget with the given ceiling.
// A non-positive limit denies every call.
func NewCallBudget(limit int) *CallBudget {
	if limit < 0 {
		limit = 0
	}
	return &CallBudget{limit: limit}
}

// TryConsume takes one unit from the budget and reports whether it was available
func (b *CallBudget) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

func (b *CallBudget) Limit() int {
	return b.limit
}

func (b *CallBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *CallBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit - b.used
}
