// Package service fans a brief out into concurrent pipeline runs, then
// scores and clusters the candidates that survived.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robinstudios/dot/internal/agent/selector"
	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/design/clustering"
	"github.com/robinstudios/dot/internal/design/scoring"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/events/bus"
	"github.com/robinstudios/dot/internal/generation/pipeline"
	"github.com/robinstudios/dot/internal/llm"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// MaxCandidates caps the fan-out of a single request.
const MaxCandidates = 10

// Runner runs one candidate. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, brief v1.Brief, models pipeline.StageModels) (*v1.DesignArtifact, error)
}

// Config controls fan-out. Providers lists the model providers with
// credentials; nil leaves model selection unrestricted.
type Config struct {
	Candidates   int
	Concurrency  int
	DefaultModel string
	Providers    []v1.Provider
}

// Request is one generation request.
type Request struct {
	Brief      v1.Brief                  `json:"brief"`
	Candidates int                       `json:"candidates,omitempty"`
	Selection  selector.SelectionContext `json:"selection,omitempty"`
}

// CandidateFailure describes a candidate that produced no artifact.
type CandidateFailure struct {
	Index     int    `json:"index"`
	Stage     string `json:"stage,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Result is the outcome of a generation request. Artifacts keep candidate
// order; failed candidates are listed in Failures instead.
type Result struct {
	ID        string                 `json:"id"`
	Artifacts []v1.DesignArtifact    `json:"artifacts"`
	Failures  []CandidateFailure     `json:"failures,omitempty"`
	Clusters  []v1.ClusterAssignment `json:"clusters"`
	Top       []string               `json:"top"`
	Models    pipeline.StageModels   `json:"models"`
	Duration  time.Duration          `json:"duration_ns"`
}

// Service orchestrates generation requests.
type Service struct {
	runner   Runner
	selector *selector.Selector
	eventBus bus.EventBus
	cfg      Config
	usable   map[v1.Provider]bool
	logger   *logger.Logger
}

// New creates a generation service. sel and eventBus may be nil.
func New(runner Runner, sel *selector.Selector, eventBus bus.EventBus, cfg Config, log *logger.Logger) *Service {
	if cfg.Candidates <= 0 {
		cfg.Candidates = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = cfg.Candidates
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	var usable map[v1.Provider]bool
	if cfg.Providers != nil {
		usable = make(map[v1.Provider]bool, len(cfg.Providers))
		for _, p := range cfg.Providers {
			usable[p] = true
		}
	}
	return &Service{
		runner:   runner,
		selector: sel,
		eventBus: eventBus,
		cfg:      cfg,
		usable:   usable,
		logger:   log.WithFields(zap.String("component", "generation-service")),
	}
}

// Generate runs the requested number of candidates concurrently. A failing
// candidate does not affect the others. When every candidate fails the
// result is still returned, together with an error describing the first
// failure.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Brief.Prompt) == "" {
		return nil, apperrors.ValidationError("prompt", "must not be empty")
	}
	n := req.Candidates
	if n == 0 {
		n = s.cfg.Candidates
	}
	if n < 0 || n > MaxCandidates {
		return nil, apperrors.ValidationError("candidates", fmt.Sprintf("must be between 1 and %d", MaxCandidates))
	}

	start := time.Now()
	result := &Result{ID: uuid.New().String(), Models: s.ResolveModels(req.Selection)}
	ctx = logger.ContextWithGenerationID(ctx, result.ID)
	log := s.logger.WithGenerationID(result.ID).WithFields(zap.Int("candidates", n))
	log.Info("generation started")

	artifacts := make([]*v1.DesignArtifact, n)
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			artifacts[i], errs[i] = s.runner.Run(ctx, req.Brief, result.Models)
			return nil
		})
	}
	_ = g.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			result.Failures = append(result.Failures, describeFailure(i, errs[i]))
			log.Warn("candidate failed", zap.Int("index", i), zap.Error(errs[i]))
			continue
		}
		result.Artifacts = append(result.Artifacts, *artifacts[i])
	}

	scoring.Apply(result.Artifacts)
	clustering.Annotate(result.Artifacts)
	clusters := clustering.Cluster(result.Artifacts)
	result.Clusters = clusters.Clusters
	result.Top = clusters.Top
	result.Duration = time.Since(start)

	log.Info("generation finished",
		zap.Int("succeeded", len(result.Artifacts)),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("duration", result.Duration))
	s.publish(ctx, result)

	if len(result.Artifacts) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, wrapAllFailed(errs)
	}
	return result, nil
}

// ResolveModels picks a model per stage from the selector's top text-capable
// agent whose provider is configured. Stages without such an agent use the
// default model, or the first usable agent when the default model's provider
// has no credentials.
func (s *Service) ResolveModels(sc selector.SelectionContext) pipeline.StageModels {
	pick := func(taskType v1.TaskType) (pipeline.ModelRef, bool) {
		if s.selector == nil {
			return pipeline.ModelRef{}, false
		}
		agent, ok := s.selector.Best(taskType, sc, s.canServe)
		if !ok {
			return pipeline.ModelRef{}, false
		}
		return pipeline.ModelRef{AgentID: agent.ID, Provider: agent.Provider, Model: agent.Model}, true
	}

	fallback := pipeline.ModelRef{
		Provider: llm.InferProvider(s.cfg.DefaultModel),
		Model:    s.cfg.DefaultModel,
	}
	if !s.configured(fallback.Provider) {
		for _, t := range []v1.TaskType{v1.TaskDesignGeneration, v1.TaskCodeExport, v1.TaskAssetCreation} {
			if ref, ok := pick(t); ok {
				fallback = ref
				break
			}
		}
	}
	resolve := func(taskType v1.TaskType) pipeline.ModelRef {
		if ref, ok := pick(taskType); ok {
			return ref
		}
		return fallback
	}

	design := resolve(v1.TaskDesignGeneration)
	return pipeline.StageModels{
		Plan:    design,
		Draft:   resolve(v1.TaskCodeExport),
		Enhance: design,
		Assets:  resolve(v1.TaskAssetCreation),
	}
}

// canServe keeps text-producing agents of configured providers; every stage
// expects text.
func (s *Service) canServe(a v1.Agent) bool {
	if a.CapabilityType == v1.CapabilityImage || a.Model == "" {
		return false
	}
	provider := a.Provider
	if provider == "" {
		provider = llm.InferProvider(a.Model)
	}
	return s.configured(provider)
}

func (s *Service) configured(p v1.Provider) bool {
	return s.usable == nil || s.usable[p]
}

func (s *Service) publish(ctx context.Context, r *Result) {
	if s.eventBus == nil {
		return
	}
	event := bus.NewEvent(events.GenerationCompleted, "generation-service", map[string]interface{}{
		"generation_id": r.ID,
		"succeeded":     len(r.Artifacts),
		"failed":        len(r.Failures),
		"top":           r.Top,
	})
	if err := s.eventBus.Publish(context.WithoutCancel(ctx), events.GenerationSubject, event); err != nil {
		s.logger.Warn("failed to publish generation event", zap.Error(err))
	}
}

func describeFailure(index int, err error) CandidateFailure {
	f := CandidateFailure{
		Index:   index,
		Stage:   string(pipeline.FailedStage(err)),
		Code:    apperrors.ErrCodeInternalError,
		Message: err.Error(),
	}
	var appErr *apperrors.AppError
	var parseErr *pipeline.PlanParseError
	switch {
	case errors.As(err, &appErr):
		f.Code = appErr.Code
		f.Retryable = appErr.Retryable
	case errors.As(err, &parseErr):
		f.Code = apperrors.ErrCodeUpstream
		f.Retryable = true
	case errors.Is(err, pipeline.ErrEmptyDraft):
		f.Code = apperrors.ErrCodeUpstream
		f.Retryable = true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		f.Code = apperrors.ErrCodeServiceUnavailable
		f.Retryable = true
	}
	return f
}

// wrapAllFailed reports the failure of a request whose candidates all
// failed. A configuration error shared by every candidate is returned as is,
// since retrying cannot help.
func wrapAllFailed(errs []error) error {
	var first error
	unsupported := true
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		if !apperrors.IsUnsupportedConfiguration(err) {
			unsupported = false
		}
	}
	if first == nil {
		return apperrors.Upstream("all candidates failed, retry the whole request", nil)
	}
	if unsupported {
		return apperrors.Wrap(first, "all candidates failed, configuration not supported")
	}
	var appErr *apperrors.AppError
	if errors.As(first, &appErr) {
		return apperrors.Wrap(first, "all candidates failed, retry the whole request")
	}
	return apperrors.Upstream("all candidates failed, retry the whole request", first)
}
