// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the opinion-sim API server.

opinion-sim turns a political topic into a simulated opinion survey. A
single LLM call produces a summary, 4-6 voter personas, ten questions
with per-persona agreement and follow-up responses. Progress is streamed
over a websocket while the survey is generated, the result is stored,
and clients may ask free-text questions about a stored poll.

# Starting the Server

	OPENAI_API_KEY=sk-... DATABASE_URL=polls.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -provider gemini

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - OPENAI_API_KEY or GEMINI_API_KEY, matching LLM_PROVIDER

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - LLM_PROVIDER (-provider): openai (default) or gemini
  - LLM_MODEL (-model), OPENAI_BASE_URL
  - API_CALL_LIMIT (-call-limit): LLM calls allowed per process (default: 50)
  - STEP_DELAY (-step-delay): pause between progress steps (default: 1s)
  - STRICT_CARDINALITY, BROADCAST_ALL, REQUESTS_PER_MINUTE

A .env file in the working directory is loaded first if present.

# Architecture

  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, per-address limiter
  - analysis: survey generation and question answering
  - llm: OpenAI and Gemini clients
  - prompts: prompt text
  - ratelimit: process-wide LLM call budget
  - live: websocket progress hub
  - db: schema and poll storage
  - metrics: Prometheus collectors
  - models: Request/response and domain types
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
