// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quorumd assembles the consensus daemon: the HTTP API, the exam
// spool watcher, and the OpenTelemetry wiring around them.
package quorumd

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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/AleutianQuorum/pkg/secrets"
	"github.com/AleutianAI/AleutianQuorum/services/consensus"
	"github.com/AleutianAI/AleutianQuorum/services/exam"
	"github.com/AleutianAI/AleutianQuorum/services/llm"
	"github.com/AleutianAI/AleutianQuorum/services/quorumd/routes"
)

// Config configures the daemon.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// EngineConfig is the path to the consensus YAML config. Empty uses
	// the built-in defaults.
	EngineConfig string

	// SpoolDir enables the exam spool watcher on the given directory.
	// Empty disables watching; exams then arrive only over HTTP.
	SpoolDir string

	// Parallel bounds concurrent consensus sessions per exam.
	Parallel int

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables
	// trace export; metrics stay available on /metrics regardless.
	OTelEndpoint string
}

// applyConfigDefaults fills unset fields.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = 4
	}
	return cfg
}

// Service is the assembled daemon.
//
// # Thread Safety
//
// New and Run are single-use; Router may be called concurrently once New
// returned.
type Service struct {
	config    Config
	engine    *consensus.Engine
	processor *exam.Processor
	watcher   *exam.Watcher
	router    *gin.Engine

	tracerCleanup func(context.Context)
}

// New builds the daemon: engine config, credentials, telemetry, routes.
// Missing credentials for a configured provider fail here, before the
// listener opens.
func New(cfg Config) (*Service, error) {
	cfg = applyConfigDefaults(cfg)

	engineCfg := consensus.DefaultConfig()
	if cfg.EngineConfig != "" {
		loaded, err := consensus.LoadConfig(cfg.EngineConfig)
		if err != nil {
			return nil, err
		}
		engineCfg = loaded
	}

	creds, err := loadCredentials(engineCfg)
	if err != nil {
		return nil, err
	}

	engine, err := consensus.NewEngine(engineCfg, creds)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:    cfg,
		engine:    engine,
		processor: exam.NewProcessor(engine, cfg.Parallel),
	}

	if err := s.initMeter(); err != nil {
		return nil, err
	}
	if cfg.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, err
		}
		s.tracerCleanup = cleanup
	}

	if cfg.SpoolDir != "" {
		s.watcher = exam.NewWatcher(s.processor, cfg.SpoolDir)
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and, when configured, the spool watcher.
// It blocks until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Service) Run() error {
	defer s.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting quorumd server", slog.Int("port", s.config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.watcher != nil {
		g.Go(func() error {
			err := s.watcher.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down quorumd")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Router returns the underlying Gin engine for integration testing.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// loadCredentials fetches only the keys the configured providers need, so
// an all-Ollama deployment never demands an OpenAI key.
func loadCredentials(cfg consensus.Config) (llm.Credentials, error) {
	needsOpenAI := cfg.Arbiter.Provider == "openai"
	for _, slot := range cfg.Solvers {
		if slot.Provider == "openai" {
			needsOpenAI = true
		}
	}

	var creds llm.Credentials
	if needsOpenAI {
		key, err := secrets.FromEnv("OPENAI_API_KEY", "/run/secrets/openai_api_key")
		if err != nil {
			return creds, err
		}
		slog.Info("OpenAI credential loaded", slog.String("source", key.Source()))
		creds.OpenAI = key
	}
	return creds, nil
}

// initRouter assembles the Gin engine with tracing middleware.
func (s *Service) initRouter() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("quorumd"))
	routes.SetupRoutes(router, s.engine, s.processor)
	s.router = router
}

// initMeter exposes the OpenTelemetry metrics through the Prometheus
// registry backing the /metrics endpoint.
func (s *Service) initMeter() error {
	exporter, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("creating prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return nil
}

// initTracer connects the OTLP gRPC exporter and installs the global
// tracer provider.
func (s *Service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("quorumd")))
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// cleanup runs when Run exits.
func (s *Service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
