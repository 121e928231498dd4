// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the opinion-sim API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{
		Store:   store,
		Analyst: service,
		Hub:     hub,
		Metrics: m,
		Limiter: middleware.NewIPLimiter(cfg.RequestsPerMinute),
	})

# Endpoints

	GET  /health             - Liveness check
	GET  /metrics            - Prometheus metrics
	GET  /ws                 - Live progress channel (websocket)
	POST /api/polls          - Generate and store a poll
	GET  /api/polls/{id}     - Fetch a stored poll
	POST /api/polls/{id}/ask - Ask a question about a poll
	GET  /                   - Banner

The /api routes are wrapped with request logging and the optional
per-address limiter.
*/
package router
