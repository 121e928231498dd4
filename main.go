package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/opinion-sim/analysis"
	"github.com/danielhkuo/opinion-sim/cliparse"
	"github.com/danielhkuo/opinion-sim/db"
	"github.com/danielhkuo/opinion-sim/live"
	"github.com/danielhkuo/opinion-sim/llm"
	"github.com/danielhkuo/opinion-sim/metrics"
	"github.com/danielhkuo/opinion-sim/middleware"
	"github.com/danielhkuo/opinion-sim/ratelimit"
	"github.com/danielhkuo/opinion-sim/router"
)

// Generations take several seconds when paced; give them time to finish
const shutdownTimeout = 30 * time.Second

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliparse.Config) error {
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	client, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	budget := ratelimit.NewCallBudget(cfg.CallLimit)
	m.RegisterBudget(budget.Remaining)

	service := analysis.NewService(client, budget, analysis.Options{
		StepDelay:         cfg.StepDelay,
		StrictCardinality: cfg.StrictCardinality,
		Metrics:           m,
	})
	hub := live.NewHub(live.Options{BroadcastAll: cfg.BroadcastAll, Metrics: m})

	mux := router.NewRouter(router.Deps{
		Store:   db.NewPollStore(dbConn, cfg.DatabaseType),
		Analyst: service,
		Hub:     hub,
		Metrics: m,
		Limiter: middleware.NewIPLimiter(cfg.RequestsPerMinute),
	})

	server := &http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening",
			"port", cfg.Port,
			"provider", cfg.LLMProvider,
			"call_limit", budget.Limit(),
			"step_delay", cfg.StepDelay,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "calls_used", budget.Used())

		// Live connections are hijacked, so Shutdown does not wait for them
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}
