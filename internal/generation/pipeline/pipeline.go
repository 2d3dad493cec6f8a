// Package pipeline runs the staged generation flow for one design candidate:
// plan, draft, enhance and asset prompts, strictly in that order.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/common/tracing"
	"github.com/robinstudios/dot/internal/llm"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const tracerName = "dot-generation"

// DefaultFramework is used when the brief does not name a target framework.
const DefaultFramework = "html"

// ModelRef is the model chosen for a stage.
type ModelRef struct {
	AgentID  string      `json:"agent_id,omitempty"`
	Provider v1.Provider `json:"provider"`
	Model    string      `json:"model"`
}

// StageModels assigns a model to every stage.
type StageModels struct {
	Plan    ModelRef `json:"plan"`
	Draft   ModelRef `json:"draft"`
	Enhance ModelRef `json:"enhance"`
	Assets  ModelRef `json:"assets"`
}

// Uniform assigns the same model to all stages.
func Uniform(m ModelRef) StageModels {
	return StageModels{Plan: m, Draft: m, Enhance: m, Assets: m}
}

// Config bounds each model invocation.
type Config struct {
	StageTimeout time.Duration
	MaxTokens    int
}

// Pipeline runs candidates against a model invoker. It holds no per-run
// state and may be shared by concurrent runs.
type Pipeline struct {
	invoker llm.Invoker
	cfg     Config
	logger  *logger.Logger
	now     func() time.Time
}

// New creates a pipeline.
func New(inv llm.Invoker, cfg Config, log *logger.Logger) *Pipeline {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	return &Pipeline{
		invoker: inv,
		cfg:     cfg,
		logger:  log.WithFields(zap.String("component", "generation-pipeline")),
		now:     time.Now,
	}
}

// Run produces one artifact for the brief. Plan and draft failures are fatal
// and returned as *PlanParseError or *StageError; enhance and asset failures
// fall back and leave a warning on the artifact. A cancelled context stops
// the run before the next stage starts.
func (p *Pipeline) Run(ctx context.Context, brief v1.Brief, models StageModels) (*v1.DesignArtifact, error) {
	framework := brief.TargetFramework
	if framework == "" {
		framework = DefaultFramework
	}
	var warnings []string

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan, err := p.plan(ctx, brief, models.Plan)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	draft, err := p.draft(ctx, plan, framework, models.Draft)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outcome := p.enhance(ctx, draft, plan, models.Enhance)
	code, ok := outcome.Resolve(draft)
	if !ok {
		p.logger.WithContext(ctx).Warn("enhancement failed, keeping draft", zap.Error(outcome.Err))
		warnings = append(warnings, "enhancement skipped: "+outcome.Err.Error())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompts, err := p.assets(ctx, plan, brief.Style, models.Assets)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.WithContext(ctx).Warn("asset prompt generation failed, using fallback", zap.Error(err))
		prompts = []string{FallbackPrompt(brief)}
		warnings = append(warnings, "asset prompts synthesized from brief: "+err.Error())
	}

	return p.assemble(brief, plan, code, framework, prompts, warnings), nil
}

func (p *Pipeline) plan(ctx context.Context, brief v1.Brief, m ModelRef) (plan *v1.DesignPlan, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pipeline.plan", modelAttrs(m)...)
	defer func() { tracing.EndSpan(span, err) }()

	text, err := p.invokeText(ctx, m, planSystemPrompt, planPrompt(brief))
	if err != nil {
		return nil, &StageError{Stage: StagePlan, Err: err}
	}
	plan, err = ParsePlan(text)
	if err != nil {
		p.logger.WithContext(ctx).Debug("unparseable plan", zap.Int("length", len(text)))
		return nil, err
	}
	return plan, nil
}

func (p *Pipeline) draft(ctx context.Context, plan *v1.DesignPlan, framework string, m ModelRef) (code string, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pipeline.draft",
		append(modelAttrs(m), attribute.String("framework", framework))...)
	defer func() { tracing.EndSpan(span, err) }()

	text, err := p.invokeText(ctx, m, draftSystemPrompt, draftPrompt(plan, framework))
	if err != nil {
		return "", &StageError{Stage: StageDraft, Err: err}
	}
	code = StripCodeFences(text)
	if code == "" {
		return "", &StageError{Stage: StageDraft, Err: ErrEmptyDraft}
	}
	return code, nil
}

func (p *Pipeline) enhance(ctx context.Context, draft string, plan *v1.DesignPlan, m ModelRef) (out EnhanceOutcome) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pipeline.enhance", modelAttrs(m)...)
	defer func() { tracing.EndSpan(span, out.Err) }()

	text, err := p.invokeText(ctx, m, enhanceSystemPrompt, enhancePrompt(draft, plan))
	if err != nil {
		return EnhanceOutcome{Err: err}
	}
	code := StripCodeFences(text)
	if code == "" {
		return EnhanceOutcome{Err: ErrEmptyEnhancement}
	}
	return EnhanceOutcome{Code: code}
}

func (p *Pipeline) assets(ctx context.Context, plan *v1.DesignPlan, style string, m ModelRef) (prompts []string, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pipeline.assets", modelAttrs(m)...)
	defer func() { tracing.EndSpan(span, err) }()

	text, err := p.invokeText(ctx, m, assetsSystemPrompt, assetsPrompt(plan, style))
	if err != nil {
		return nil, err
	}
	return ParsePromptList(text)
}

func (p *Pipeline) invokeText(ctx context.Context, m ModelRef, system, user string) (string, error) {
	resp, err := llm.InvokeWithTimeout(ctx, p.invoker, llm.Request{
		Provider:  m.Provider,
		Model:     m.Model,
		Prompt:    llm.Prompt{System: system, User: user},
		MaxTokens: p.cfg.MaxTokens,
		Kind:      llm.KindText,
	}, p.cfg.StageTimeout)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (p *Pipeline) assemble(brief v1.Brief, plan *v1.DesignPlan, code, framework string, prompts, warnings []string) *v1.DesignArtifact {
	description := plan.Description
	if description == "" {
		description = strings.TrimSpace(brief.Prompt)
	}
	layout := plan.Layout
	if layout == "" {
		layout = brief.Layout
	}

	var fonts []string
	for _, f := range []string{plan.Typography.Heading, plan.Typography.Body} {
		if f != "" && !containsString(fonts, f) {
			fonts = append(fonts, f)
		}
	}

	elements := make([]v1.Element, 0, len(plan.Components))
	for _, c := range plan.Components {
		elements = append(elements, v1.Element{Type: c.Type, Attributes: c.Attributes})
	}

	return &v1.DesignArtifact{
		ID:          uuid.New().String(),
		Code:        code,
		Description: description,
		DesignSystem: v1.DesignSystem{
			Colors: plan.ColorScheme.Colors(),
			Typography: v1.Typography{
				Fonts:        fonts,
				BaseFontSize: plan.Typography.BaseFontSize,
			},
		},
		ImagePrompts: prompts,
		Style:        brief.Style,
		Layout:       layout,
		Elements:     elements,
		Responsive:   plan.Responsive,
		Framework:    framework,
		Warnings:     warnings,
		CreatedAt:    p.now().UTC(),
	}
}

func modelAttrs(m ModelRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("model", m.Model),
		attribute.String("provider", string(m.Provider)),
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
