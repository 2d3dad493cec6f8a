package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

func TestInvokeWithTimeout_Success(t *testing.T) {
	inv := InvokerFunc(func(ctx context.Context, req Request) (*Response, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &Response{Kind: KindText, Text: "ok"}, nil
	})

	resp, err := InvokeWithTimeout(context.Background(), inv, Request{Model: "gpt-4o"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestInvokeWithTimeout_DeadlineIsUpstreamTimeout(t *testing.T) {
	slow := InvokerFunc(func(ctx context.Context, req Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := InvokeWithTimeout(context.Background(), slow, Request{}, 10*time.Millisecond)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeUpstreamTimeout, appErr.Code)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestInvokeWithTimeout_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := InvokerFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, ctx.Err()
	})

	_, err := InvokeWithTimeout(ctx, inv, Request{}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokeWithTimeout_FailureIsUpstream(t *testing.T) {
	inv := InvokerFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, errors.New("503 service unavailable")
	})

	_, err := InvokeWithTimeout(context.Background(), inv, Request{}, time.Second)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeUpstream, appErr.Code)

	nilResp := InvokerFunc(func(ctx context.Context, req Request) (*Response, error) { return nil, nil })
	_, err = InvokeWithTimeout(context.Background(), nilResp, Request{}, time.Second)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestRouter(t *testing.T) {
	router := NewRouter(logger.NewNop())
	var got []v1.Provider
	router.Register(v1.ProviderOpenAI, InvokerFunc(func(ctx context.Context, req Request) (*Response, error) {
		got = append(got, v1.ProviderOpenAI)
		return &Response{Text: "openai"}, nil
	}))

	resp, err := router.Invoke(context.Background(), Request{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Text)

	_, err = router.Invoke(context.Background(), Request{Model: "claude-3-5-haiku-latest"})
	assert.True(t, apperrors.IsUnsupportedConfiguration(err))

	_, err = router.Invoke(context.Background(), Request{Provider: v1.ProviderAnthropic, Model: "gpt-4o"})
	assert.True(t, apperrors.IsUnsupportedConfiguration(err))

	assert.Equal(t, []v1.Provider{v1.ProviderOpenAI}, got)
	assert.Equal(t, []v1.Provider{v1.ProviderOpenAI}, router.Providers())
}

func TestInferProvider(t *testing.T) {
	assert.Equal(t, v1.ProviderAnthropic, InferProvider("claude-sonnet-4-20250514"))
	assert.Equal(t, v1.ProviderAnthropic, InferProvider("Claude-3"))
	assert.Equal(t, v1.ProviderOpenAI, InferProvider("gpt-4o"))
	assert.Equal(t, v1.ProviderOpenAI, InferProvider("dall-e-3"))
}
