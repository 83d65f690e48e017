// Command server runs the ACIP verification service: case intake, the
// workflow engine with its evidence providers, and the reviewer API.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acip/internal/activity"
	"acip/internal/activity/kafkasink"
	"acip/internal/audit"
	auditmemory "acip/internal/audit/store/memory"
	auditpostgres "acip/internal/audit/store/postgres"
	"acip/internal/cases"
	casememory "acip/internal/cases/store/memory"
	casepostgres "acip/internal/cases/store/postgres"
	"acip/internal/customers"
	"acip/internal/decision"
	"acip/internal/inspection"
	inspectionfixture "acip/internal/inspection/fixture"
	inspectionlive "acip/internal/inspection/live"
	"acip/internal/platform/config"
	"acip/internal/platform/database"
	"acip/internal/platform/health"
	"acip/internal/platform/kafka/producer"
	"acip/internal/platform/logger"
	platformredis "acip/internal/platform/redis"
	"acip/internal/verification"
	"acip/internal/workflow"
	"acip/internal/workflow/checkpoint"
	checkpointmemory "acip/internal/workflow/checkpoint/memory"
	checkpointredis "acip/internal/workflow/checkpoint/redis"
	workflowmetrics "acip/internal/workflow/metrics"
	"acip/pkg/platform/middleware/auth"
	"acip/pkg/platform/middleware/request"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	healthHandler := health.New(cfg.Server.Environment)

	// Storage. Postgres backs cases and the audit trail when configured;
	// otherwise everything runs in memory for demos and local work.
	var auditStore audit.Store = auditmemory.New()
	var caseStore cases.Store = casememory.New()

	pool, err := database.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck
		auditStore = auditpostgres.New(pool.DB())
		caseStore = casepostgres.New(pool.DB())
		healthHandler.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		log.Info("postgres storage enabled")
	}

	// Redis backs the checkpoint store when configured.
	var checkpoints checkpoint.Store = checkpointmemory.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		checkpoints = checkpointredis.New(redisClient)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		log.Info("redis checkpoint store enabled")
	}

	// Activity log, optionally broadcast to Kafka.
	activities := activity.NewLog(activity.WithLogger(log))

	if cfg.Kafka.Brokers != "" {
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers

		prod, err := producer.New(producerCfg, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer prod.Close() //nolint:errcheck

		activities.RegisterSink(kafkasink.New(prod, cfg.Kafka.ActivityTopic))
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !prod.Healthy(ctx) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
		log.Info("kafka activity broadcast enabled", "topic", cfg.Kafka.ActivityTopic)
	}

	// Evidence providers.
	var inspector inspection.Provider
	switch cfg.Providers.Mode {
	case "live":
		if cfg.Providers.InspectionURL == "" {
			return errors.New("live provider mode requires ACIP_INSPECTION_URL")
		}
		inspector = inspectionlive.New(cfg.Providers.InspectionURL, inspectionlive.WithLogger(log))
	default:
		inspector = inspectionfixture.New(inspectionfixture.WithLogger(log))
	}

	verifier := verification.New(verification.WithLogger(log))
	decider := decision.New(decision.Policy{AutoApproveLowRisk: cfg.Policy.AutoApproveLowRisk}, decision.WithLogger(log))

	engine := workflow.New(
		inspector,
		verifier,
		decider,
		checkpoints,
		auditStore,
		activities,
		workflow.WithLogger(log),
		workflow.WithMetrics(workflowmetrics.New()),
		workflow.WithProviderTimeout(cfg.Providers.ProviderTimeout),
	)

	customerStore := customers.NewSeededStore()
	caseService := cases.NewService(caseStore, engine, customerStore, activities, cases.WithLogger(log))

	// HTTP surface.
	verifierJWT := auth.NewTokenVerifier(cfg.Server.JWTSigningKey)
	reviewerAuth := auth.RequireReviewer(verifierJWT, log)

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Timeout(cfg.Server.RequestTimeout))
	r.Use(request.BodyLimit(cfg.Server.MaxBodyBytes))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	cases.NewHandler(caseService, log).Register(r, reviewerAuth)
	customers.NewHandler(customerStore).Register(r)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"provider_mode", cfg.Providers.Mode,
			"auto_approve_low_risk", cfg.Policy.AutoApproveLowRisk,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
