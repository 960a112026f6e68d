// Package app wires the configured collaborators into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EasterCompany/pulse-service/cache"
	"github.com/EasterCompany/pulse-service/config"
	"github.com/EasterCompany/pulse-service/documents"
	"github.com/EasterCompany/pulse-service/endpoints"
	"github.com/EasterCompany/pulse-service/health"
	"github.com/EasterCompany/pulse-service/llm"
	"github.com/EasterCompany/pulse-service/pipeline"
	"github.com/EasterCompany/pulse-service/store"
	"github.com/EasterCompany/pulse-service/utils"
	"github.com/EasterCompany/pulse-service/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     store.Store
	Documents *documents.SQLiteStore
	LLM       *llm.Client
	Registry  *pipeline.Registry
	Health    *health.Checker
	Metrics   *utils.Metrics

	prom    *prometheus.Registry
	handler http.Handler
}

// NewApp builds every collaborator from cfg. A missing Redis address keeps
// wizard state in memory and a missing API key leaves the model offline;
// both show up on /status rather than stopping the service.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, prom: prometheus.NewRegistry()}
	a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = utils.NewMetrics(a.prom)
	a.Health = health.NewChecker(0, logger)

	rs, err := store.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		a.Store = rs
		a.Health.Register("redis", rs.Ping)
	} else {
		logger.Warn("redis not configured, wizard state is kept in memory")
		a.Store = store.NewMemory()
		a.Health.Register("redis", nil)
	}

	a.Documents, err = documents.Open(cfg.Documents.Path, cfg.Documents.MaxFileBytes)
	if err != nil {
		_ = a.Store.Close()
		return nil, err
	}
	a.Health.Register("documents", a.Documents.Ping)

	if err := a.initLLM(ctx); err != nil {
		a.closeStores()
		return nil, err
	}

	a.Registry = pipeline.NewRegistry(a.Store, pipeline.Deps{
		Bentos:      a.LLM,
		Statements:  a.LLM,
		Synthesizer: a.LLM,
		Chat:        a.LLM,
		Documents:   a.Documents,
		Metrics:     a.Metrics,
		Logger:      logger,
	}, pipeline.Config{
		GenerationTimeout: cfg.Assessment.GenerationTimeout,
		SettleDelay:       cfg.Assessment.SettleDelay,
		DocumentBudget:    cfg.Chat.DocumentBudget,
		Dimensions:        a.LLM.Prompts().DimensionNames(),
	})

	a.handler = endpoints.New(endpoints.Options{
		Registry:        a.Registry,
		Statements:      a.LLM,
		Documents:       a.Documents,
		Health:          a.Health,
		Metrics:         a.Metrics,
		Gatherer:        a.prom,
		Logger:          logger,
		WorkspaceHeader: cfg.Server.WorkspaceHeader,
		DragThreshold:   cfg.Assessment.DragThreshold,
		MaxUploadBytes:  cfg.Documents.MaxFileBytes,
	}).Handler()
	return a, nil
}

func (a *App) initLLM(ctx context.Context) error {
	prompts, err := llm.LoadPrompts(a.Config.Prompts.Path)
	if err != nil {
		return err
	}
	images, err := cache.NewImages(a.Config.Assessment.ImageCacheSize)
	if err != nil {
		return fmt.Errorf("could not create image cache: %w", err)
	}

	var gen llm.Generator
	switch g, err := llm.NewGenAI(ctx, a.Config.Gemini.APIKey); {
	case errors.Is(err, llm.ErrGeneratorUnavailable):
		a.Logger.Warn("gemini api key not set, generation is offline")
		gen = llm.Unavailable
		a.Health.Register("gemini", nil)
	case err != nil:
		return err
	default:
		gen = g
		a.Health.Register("gemini", func(context.Context) error { return nil })
	}

	a.LLM = llm.NewClient(gen, prompts, llm.Models{
		Text:  a.Config.Gemini.TextModel,
		Chat:  a.Config.Gemini.ChatModel,
		Image: a.Config.Gemini.ImageModel,
	},
		llm.WithImageCache(images),
		llm.WithWorkerPool(worker.New(a.Config.Assessment.ImageWorkers, a.Logger)),
		llm.WithMetrics(a.Metrics),
		llm.WithLogger(a.Logger),
	)
	return nil
}

// Handler is the HTTP surface of the service.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves until ctx is done or the process receives SIGINT or SIGTERM,
// then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", a.Config.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     a.handler,
		ReadTimeout: a.Config.Server.ReadTimeout,
		// statement streams outlive a normal response
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("pulse service listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(sc)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sc:
		a.Logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("shutting down", zap.Error(ctx.Err()))
	}

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close stops background work and releases the stores.
func (a *App) Close() {
	if a.Registry != nil {
		a.Registry.Close()
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if a.Documents != nil {
		if err := a.Documents.Close(); err != nil {
			a.Logger.Warn("could not close documents", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("could not close store", zap.Error(err))
		}
	}
}
