package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
)

// AnthropicInvoker serves text requests with the messages API.
type AnthropicInvoker struct {
	client anthropic.Client
}

// NewAnthropicInvoker creates an invoker. An empty apiKey falls back to the
// SDK's environment lookup; an empty baseURL uses the public API.
func NewAnthropicInvoker(apiKey, baseURL string) *AnthropicInvoker {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicInvoker{client: anthropic.NewClient(opts...)}
}

// Invoke implements Invoker.
func (a *AnthropicInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Kind == KindImage {
		return nil, apperrors.UnsupportedConfiguration("anthropic models cannot generate images", nil)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt.User)),
		},
	}
	if req.Prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Prompt.System}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			return nil, apperrors.UnsupportedConfiguration(fmt.Sprintf("anthropic rejected the request (status %d)", apiErr.StatusCode), err)
		}
		return nil, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &Response{
		Kind:         KindText,
		Model:        string(message.Model),
		Text:         text,
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}
