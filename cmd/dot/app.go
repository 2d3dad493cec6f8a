package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robinstudios/dot/internal/agent/catalog"
	"github.com/robinstudios/dot/internal/agent/packs"
	"github.com/robinstudios/dot/internal/agent/registry"
	"github.com/robinstudios/dot/internal/agent/selector"
	"github.com/robinstudios/dot/internal/common/config"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/db"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/events/bus"
	"github.com/robinstudios/dot/internal/export/engine"
	"github.com/robinstudios/dot/internal/export/processors"
	"github.com/robinstudios/dot/internal/export/repository"
	"github.com/robinstudios/dot/internal/generation/pipeline"
	"github.com/robinstudios/dot/internal/generation/service"
	"github.com/robinstudios/dot/internal/llm"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// app holds the wired services shared by every command.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	eventBus  bus.EventBus
	registry  *registry.Registry
	packs     *packs.Manager
	selector  *selector.Selector
	generator *service.Service
	exporter  *engine.Engine
	cleanups  []func() error
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.wire(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg, log := a.cfg, a.log

	provided, cleanup, err := events.Provide(cfg, log)
	if err != nil {
		return err
	}
	a.eventBus = provided.Bus
	a.cleanups = append(a.cleanups, cleanup)

	pool, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if pool != nil {
		a.cleanups = append(a.cleanups, pool.Close)
		log.Info("export job store opened", zap.String("driver", pool.DriverName()))
	}
	repo, cleanup, err := repository.Provide(pool)
	if err != nil {
		return err
	}
	a.cleanups = append(a.cleanups, cleanup)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	a.registry = registry.NewRegistry(log)
	a.packs = packs.NewManager(log)
	if err := cat.Apply(a.registry, a.packs, log, cfg.Catalog.InstalledPacks...); err != nil {
		return err
	}
	a.selector = selector.New(a.registry, a.packs, cat.Affinities, log)

	router := llm.NewRouter(log)
	if key := cfg.Models.OpenAI.APIKey; key != "" {
		router.Register(v1.ProviderOpenAI, llm.NewOpenAIInvoker(key, cfg.Models.OpenAI.BaseURL))
	}
	if key := cfg.Models.Anthropic.APIKey; key != "" {
		router.Register(v1.ProviderAnthropic, llm.NewAnthropicInvoker(key, cfg.Models.Anthropic.BaseURL))
	}
	if len(router.Providers()) == 0 {
		log.Warn("no model provider credentials configured, generation requests will fail")
	}

	pipe := pipeline.New(router, pipeline.Config{
		StageTimeout: cfg.Models.StageTimeoutDuration(),
		MaxTokens:    cfg.Models.MaxTokens,
	}, log)
	a.generator = service.New(pipe, a.selector, a.eventBus, service.Config{
		Candidates:   cfg.Generation.Candidates,
		Concurrency:  cfg.Generation.Concurrency,
		DefaultModel: cfg.Models.DefaultModel,
		Providers:    router.Providers(),
	}, log)

	a.exporter, err = engine.New(engine.Config{
		Workers:           cfg.Export.Workers,
		MaxConcurrentJobs: cfg.Export.MaxConcurrentJobs,
		RetainJobs:        cfg.Export.RetainJobs,
	}, processors.Default(), repo, a.eventBus, log)
	return err
}

// close runs cleanups in reverse order of registration.
func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			a.log.Warn("cleanup failed", zap.Error(err))
		}
	}
	a.cleanups = nil
}
