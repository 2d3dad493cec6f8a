package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/llm"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const planJSONResponse = "```json\n" + `{
  "layout": "grid",
  "description": "SaaS landing page with hero, features and pricing",
  "sections": ["hero", "features", "pricing"],
  "color_scheme": {"primary": "#1e3a8a", "secondary": "#f8fafc", "accent": "#f59e0b"},
  "typography": {"heading": "Inter", "body": "Source Sans", "base_font_size": 16},
  "components": [
    {"type": "img", "name": "hero", "attributes": {"alt": "Product screenshot", "src": "hero.png", "loading": "lazy"}},
    {"type": "button", "name": "cta"}
  ],
  "responsive": true
}` + "\n```"

// scriptedInvoker answers by stage, recognised from the system prompt.
type scriptedInvoker struct {
	mu      sync.Mutex
	calls   []string
	models  []string
	replies map[Stage]func(ctx context.Context) (*llm.Response, error)
}

func newScripted() *scriptedInvoker {
	text := func(s string) func(context.Context) (*llm.Response, error) {
		return func(context.Context) (*llm.Response, error) {
			return &llm.Response{Kind: llm.KindText, Text: s}, nil
		}
	}
	return &scriptedInvoker{replies: map[Stage]func(context.Context) (*llm.Response, error){
		StagePlan:    text(planJSONResponse),
		StageDraft:   text("```html\n<main class=\"grid\"><h1>Ship faster</h1></main>\n```"),
		StageEnhance: text("<main class=\"grid\" role=\"main\"><h1>Ship faster</h1></main>"),
		StageAssets:  text(`["isometric dashboard illustration", "team collaborating, flat style"]`),
	}}
}

func stageOf(system string) Stage {
	switch system {
	case planSystemPrompt:
		return StagePlan
	case draftSystemPrompt:
		return StageDraft
	case enhanceSystemPrompt:
		return StageEnhance
	default:
		return StageAssets
	}
}

func (s *scriptedInvoker) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	stage := stageOf(req.Prompt.System)
	s.mu.Lock()
	s.calls = append(s.calls, string(stage))
	s.models = append(s.models, req.Model)
	reply := s.replies[stage]
	s.mu.Unlock()
	return reply(ctx)
}

func newPipeline(inv llm.Invoker) *Pipeline {
	return New(inv, Config{StageTimeout: time.Second, MaxTokens: 512}, logger.NewNop())
}

var saasBrief = v1.Brief{
	Prompt:          "modern SaaS landing page",
	Style:           "modern",
	DesignType:      "landing page",
	TargetFramework: "html",
}

func TestRun_AllStagesSucceed(t *testing.T) {
	inv := newScripted()
	p := newPipeline(inv)

	models := StageModels{
		Plan:    ModelRef{Provider: v1.ProviderOpenAI, Model: "gpt-4o"},
		Draft:   ModelRef{Provider: v1.ProviderAnthropic, Model: "claude-sonnet-4-20250514"},
		Enhance: ModelRef{Provider: v1.ProviderOpenAI, Model: "gpt-4o"},
		Assets:  ModelRef{Provider: v1.ProviderOpenAI, Model: "gpt-4o-mini"},
	}
	art, err := p.Run(context.Background(), saasBrief, models)
	require.NoError(t, err)

	assert.Equal(t, []string{"plan", "draft", "enhance", "assets"}, inv.calls)
	assert.Equal(t, []string{"gpt-4o", "claude-sonnet-4-20250514", "gpt-4o", "gpt-4o-mini"}, inv.models)

	assert.NotEmpty(t, art.ID)
	assert.Contains(t, art.Code, `role="main"`)
	assert.Equal(t, "grid", art.Layout)
	assert.Equal(t, "modern", art.Style)
	assert.Equal(t, "html", art.Framework)
	assert.True(t, art.Responsive)
	assert.Equal(t, []string{"#1e3a8a", "#f8fafc", "#f59e0b"}, art.DesignSystem.Colors)
	assert.Equal(t, []string{"Inter", "Source Sans"}, art.DesignSystem.Typography.Fonts)
	assert.Equal(t, 16, art.DesignSystem.Typography.BaseFontSize)
	assert.Len(t, art.Elements, 2)
	assert.Len(t, art.ImagePrompts, 2)
	assert.Empty(t, art.Warnings)
	assert.False(t, art.CreatedAt.IsZero())
}

func TestRun_MalformedPlanIsFatal(t *testing.T) {
	inv := newScripted()
	inv.replies[StagePlan] = func(context.Context) (*llm.Response, error) {
		return &llm.Response{Text: "Sure! Here is a lovely layout for you."}, nil
	}

	_, err := newPipeline(inv).Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
	require.Error(t, err)

	var pe *PlanParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, StagePlan, FailedStage(err))
	assert.Equal(t, []string{"plan"}, inv.calls)
}

func TestRun_DraftFailureIsFatal(t *testing.T) {
	t.Run("invocation error", func(t *testing.T) {
		inv := newScripted()
		inv.replies[StageDraft] = func(context.Context) (*llm.Response, error) {
			return nil, errors.New("connection reset")
		}

		_, err := newPipeline(inv).Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageDraft, se.Stage)
		assert.True(t, apperrors.IsRetryable(err))
		assert.Equal(t, []string{"plan", "draft"}, inv.calls)
	})

	t.Run("empty code", func(t *testing.T) {
		inv := newScripted()
		inv.replies[StageDraft] = func(context.Context) (*llm.Response, error) {
			return &llm.Response{Text: "```html\n```"}, nil
		}

		_, err := newPipeline(inv).Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
		assert.ErrorIs(t, err, ErrEmptyDraft)
		assert.Equal(t, StageDraft, FailedStage(err))
	})
}

func TestRun_EnhanceFailureFallsBackToDraft(t *testing.T) {
	inv := newScripted()
	inv.replies[StageEnhance] = func(context.Context) (*llm.Response, error) {
		return nil, errors.New("rate limited")
	}

	art, err := newPipeline(inv).Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
	require.NoError(t, err)

	assert.Equal(t, `<main class="grid"><h1>Ship faster</h1></main>`, art.Code)
	require.Len(t, art.Warnings, 1)
	assert.Contains(t, art.Warnings[0], "enhancement skipped")
	assert.Len(t, art.ImagePrompts, 2)
}

func TestRun_EnhanceTimeoutFallsBackToDraft(t *testing.T) {
	inv := newScripted()
	inv.replies[StageEnhance] = func(ctx context.Context) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := New(inv, Config{StageTimeout: 20 * time.Millisecond}, logger.NewNop())

	art, err := p.Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
	require.NoError(t, err)
	assert.NotContains(t, art.Code, "role=")
	require.Len(t, art.Warnings, 1)
	assert.Contains(t, art.Warnings[0], "timed out")
}

func TestRun_AssetFallback(t *testing.T) {
	cases := map[string]func(context.Context) (*llm.Response, error){
		"invocation error": func(context.Context) (*llm.Response, error) { return nil, errors.New("boom") },
		"not json":         func(context.Context) (*llm.Response, error) { return &llm.Response{Text: "a hero image"}, nil },
		"empty list":       func(context.Context) (*llm.Response, error) { return &llm.Response{Text: "[]"}, nil },
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			inv := newScripted()
			inv.replies[StageAssets] = reply

			art, err := newPipeline(inv).Run(context.Background(), saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
			require.NoError(t, err)
			require.Len(t, art.ImagePrompts, 1)
			assert.Equal(t, "modern SaaS landing page, modern style, hero illustration", art.ImagePrompts[0])
			assert.Len(t, art.Warnings, 1)
		})
	}
}

func TestRun_CancellationStopsBeforeNextStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := newScripted()
	draft := inv.replies[StageDraft]
	inv.replies[StageDraft] = func(c context.Context) (*llm.Response, error) {
		cancel()
		return draft(c)
	}

	_, err := newPipeline(inv).Run(ctx, saasBrief, Uniform(ModelRef{Model: "gpt-4o"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"plan", "draft"}, inv.calls)
}

func TestRun_DefaultFramework(t *testing.T) {
	brief := saasBrief
	brief.TargetFramework = ""

	art, err := newPipeline(newScripted()).Run(context.Background(), brief, Uniform(ModelRef{Model: "gpt-4o"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultFramework, art.Framework)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tagged block", "```html\n<div/>\n```", "<div/>"},
		{"no fence", "  <div/>  ", "<div/>"},
		{"surrounding prose", "Here you go:\n```\na\nb\n```\nEnjoy", "a\nb"},
		{"bare fence", "```", ""},
		{"single line", "```<main>Hi</main>```", "<main>Hi</main>"},
		{"single line with tag", "```html <main>Hi</main>```", "<main>Hi</main>"},
		{"code on fence line", "```<main>\n  <p>Hi</p>\n</main>\n```", "<main>\n  <p>Hi</p>\n</main>"},
		{"unterminated", "```jsx\n<App />", "<App />"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(planJSONResponse)
	require.NoError(t, err)
	assert.Equal(t, "grid", plan.Layout)
	assert.Equal(t, []string{"hero", "features", "pricing"}, plan.Sections)

	_, err = ParsePlan(`{"layout": "grid",`)
	assert.Error(t, err)

	_, err = ParsePlan(`{}`)
	var pe *PlanParseError
	assert.True(t, errors.As(err, &pe))
	assert.True(t, strings.Contains(pe.Error(), "no layout"))
}
