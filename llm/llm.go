// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package llm wraps the chat completion providers behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var ErrUnknownProvider = errors.New("unknown LLM provider")

// Request is a single system + user completion
type Request struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response
	JSON bool
}

// Client performs one text completion per call
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a provider
type Options struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint (proxies, compatible servers)
	BaseURL string
}

// New returns the client for opts.Provider
func New(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts)
	case ProviderGemini:
		return NewGeminiClient(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
