// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/opinion-sim/handlers"
	"github.com/danielhkuo/opinion-sim/metrics"
	"github.com/danielhkuo/opinion-sim/middleware"
)

// LiveHub is the websocket endpoint that also receives progress events
type LiveHub interface {
	handlers.Broadcaster
	http.Handler
}

type Deps struct {
	Store   handlers.PollStore
	Analyst handlers.Analyst
	Hub     LiveHub
	Metrics *metrics.Metrics
	// Limiter throttles /api routes per client address; nil disables it
	Limiter *middleware.IPLimiter
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	pollHandler := handlers.NewPollHandler(d.Store, d.Analyst, d.Hub)

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(d.Limiter.Limit(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /api/polls", api(pollHandler.CreatePoll))
	mux.HandleFunc("GET /api/polls/{id}", api(pollHandler.GetPoll))
	mux.HandleFunc("POST /api/polls/{id}/ask", api(pollHandler.AskQuestion))

	// Live progress
	mux.Handle("GET /ws", d.Hub)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("opinion-sim API v1"))
	})

	return mux
}
