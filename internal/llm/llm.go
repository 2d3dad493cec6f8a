// Package llm is the boundary to the generative model service. Invocations
// are opaque: they may fail or be slow, and callers bound them with deadlines.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Kind is the requested output modality.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Prompt is a system/user prompt pair.
type Prompt struct {
	System string `json:"system,omitempty"`
	User   string `json:"user"`
}

// Request is one model invocation.
type Request struct {
	Provider  v1.Provider `json:"provider,omitempty"`
	Model     string      `json:"model"`
	Prompt    Prompt      `json:"prompt"`
	MaxTokens int         `json:"max_tokens,omitempty"`
	Kind      Kind        `json:"kind,omitempty"`
}

// Response is the outcome of an invocation. Text is set for text requests,
// ImageBase64 for image requests.
type Response struct {
	Kind         Kind   `json:"kind"`
	Model        string `json:"model"`
	Text         string `json:"text,omitempty"`
	ImageBase64  string `json:"image_base64,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Invoker calls the model service.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (*Response, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 4096

// InferProvider guesses the provider from a model identifier.
func InferProvider(model string) v1.Provider {
	if strings.HasPrefix(strings.ToLower(model), "claude") {
		return v1.ProviderAnthropic
	}
	return v1.ProviderOpenAI
}

// InvokeWithTimeout runs one invocation under its own deadline and maps
// failures onto the upstream error taxonomy. A deadline hit by this call is
// an upstream timeout; cancellation of the parent context is returned as is.
func InvokeWithTimeout(ctx context.Context, inv Invoker, req Request, timeout time.Duration) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := inv.Invoke(callCtx, req)
	if err == nil {
		if resp == nil {
			return nil, apperrors.Upstream("model returned no response", nil)
		}
		return resp, nil
	}
	return nil, classify(ctx, callCtx, err)
}

func classify(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(call.Err(), context.DeadlineExceeded) {
		return apperrors.UpstreamTimeout("model invocation timed out", err)
	}
	return apperrors.Upstream("model invocation failed", err)
}
