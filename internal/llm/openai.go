package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
)

// OpenAIInvoker serves text requests with chat completions and image
// requests with base64 image generation.
type OpenAIInvoker struct {
	client *openai.Client
}

// NewOpenAIInvoker creates an invoker. An empty baseURL uses the public API.
func NewOpenAIInvoker(apiKey, baseURL string) *OpenAIInvoker {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIInvoker{client: openai.NewClientWithConfig(cfg)}
}

// Invoke implements Invoker.
func (o *OpenAIInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Kind == KindImage {
		return o.image(ctx, req)
	}
	return o.chat(ctx, req)
}

func (o *OpenAIInvoker) chat(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var messages []openai.ChatCompletionMessage
	if req.Prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.Prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt.User})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.Upstream("openai returned no choices", nil)
	}

	return &Response{
		Kind:         KindText,
		Model:        resp.Model,
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (o *OpenAIInvoker) image(ctx context.Context, req Request) (*Response, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt.User,
		Model:          req.Model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, apperrors.Upstream("openai returned no image", nil)
	}
	return &Response{Kind: KindImage, Model: req.Model, ImageBase64: resp.Data[0].B64JSON}, nil
}

// wrapOpenAIError maps client errors (4xx other than rate limiting) to
// non-retryable configuration errors and everything else to upstream errors.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return apperrors.UnsupportedConfiguration(fmt.Sprintf("openai rejected the request (status %d)", apiErr.HTTPStatusCode), err)
		}
	}
	return err
}
