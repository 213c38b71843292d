package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/metallisense/metallisense/internal/adapter/auditlog"
	mshttp "github.com/metallisense/metallisense/internal/adapter/http"
	"github.com/metallisense/metallisense/internal/adapter/model"
	msnats "github.com/metallisense/metallisense/internal/adapter/nats"
	msotel "github.com/metallisense/metallisense/internal/adapter/otel"
	"github.com/metallisense/metallisense/internal/adapter/postgres"
	"github.com/metallisense/metallisense/internal/adapter/ristretto"
	"github.com/metallisense/metallisense/internal/adapter/ws"
	"github.com/metallisense/metallisense/internal/config"
	"github.com/metallisense/metallisense/internal/logger"
	"github.com/metallisense/metallisense/internal/port/audit"
	"github.com/metallisense/metallisense/internal/resilience"
	"github.com/metallisense/metallisense/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"alloy_gate", cfg.Policy.AlloyGateSeverity,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	otelShutdown, err := msotel.Setup(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := msotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL (grade registry)
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// Audit sink: JetStream when configured, structured log otherwise.
	var sink audit.Sink = auditlog.New(log)
	if cfg.NATS.URL != "" {
		natsSink, err := msnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsSink.Close() }()
		sink = natsSink
	}

	// Grade registry cache
	gradeCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer gradeCache.Close()

	// --- Collaborator models (loaded once, read-only afterwards) ---
	scorer, err := model.LoadAnomalyScorer(cfg.Anomaly.ModelPath)
	if err != nil {
		return fmt.Errorf("anomaly model: %w", err)
	}
	predictor, err := model.LoadAlloyPredictor(cfg.Alloy.ModelPath)
	if err != nil {
		return fmt.Errorf("alloy model: %w", err)
	}
	slog.Info("collaborator models loaded",
		"anomaly", cfg.Anomaly.ModelPath,
		"alloy", cfg.Alloy.ModelPath,
	)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	gradeSvc := service.NewGradeService(store, gradeCache, cfg.Cache.TTL, log)

	policy, err := service.NewDecisionPolicy(cfg.Policy.AlloyGateSeverity, sink)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	anomalySvc := service.NewAnomalyService(scorer, cfg.Anomaly,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout), log)
	alloySvc := service.NewAlloyService(gradeSvc, predictor, cfg.Alloy,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout), log)
	manager := service.NewManagerService(anomalySvc, alloySvc, policy, hub, metrics, log)

	// --- HTTP ---
	handlers := &mshttp.Handlers{
		Manager: manager,
		Grades:  gradeSvc,
		Anomaly: anomalySvc,
		Alloy:   alloySvc,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(mshttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(mshttp.RequestID)
	r.Use(mshttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(msotel.HTTPMiddleware(cfg.Logging.Service))

	// Health endpoint with agent readiness
	r.Get("/health", healthHandler(manager))

	// Live advisory feed
	r.Get("/ws", hub.HandleWS)

	// API routes
	mshttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthHandler(manager *service.ManagerService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !manager.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
