// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the opinion-sim API.

# Handler Types

PollHandler serves the whole API. Its dependencies are small interfaces
so tests can swap any of them:

  - PollStore: persistence (db.PollStore)
  - Analyst: survey generation and question answering (analysis.Service)
  - Broadcaster: live progress delivery (live.Hub)

Create it once and register its methods on the router:

	pollHandler := handlers.NewPollHandler(store, service, hub)

# Endpoints

	POST /api/polls          → CreatePoll
	GET  /api/polls/{id}     → GetPoll
	POST /api/polls/{id}/ask → AskQuestion

CreatePoll validates the prompt, runs one generation and stores the
result. Progress steps are broadcast with the optional sessionId from
the request body, which clients obtain from the live channel's
connected message. Generation runs on a context detached from the
request, so a client that disconnects still gets its poll stored.

# Errors

	invalid JSON or fields   → 400
	non-positive poll id     → 400
	unknown poll             → 404 "Poll not found"
	call budget exhausted    → 429
	LLM or database failure  → 500
*/
package handlers
