package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
)

func TestOpenAIInvoker_Chat(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"layout\":\"grid\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`))
	}))
	defer server.Close()

	inv := NewOpenAIInvoker("sk-test", server.URL+"/v1")
	resp, err := inv.Invoke(context.Background(), Request{
		Model:  "gpt-4o",
		Prompt: Prompt{System: "You plan designs.", User: "A SaaS landing page"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"layout":"grid"}`, resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Len(t, body["messages"], 2)
}

func TestOpenAIInvoker_Image(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/images/generations"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer server.Close()

	inv := NewOpenAIInvoker("sk-test", server.URL+"/v1")
	resp, err := inv.Invoke(context.Background(), Request{Model: "dall-e-3", Kind: KindImage, Prompt: Prompt{User: "hero art"}})
	require.NoError(t, err)
	assert.Equal(t, KindImage, resp.Kind)
	assert.Equal(t, "aGVsbG8=", resp.ImageBase64)
}

func TestOpenAIInvoker_ClientErrorIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	inv := NewOpenAIInvoker("sk-test", server.URL+"/v1")
	_, err := inv.Invoke(context.Background(), Request{Model: "gpt-nope", Prompt: Prompt{User: "x"}})
	assert.True(t, apperrors.IsUnsupportedConfiguration(err))
}

func TestAnthropicInvoker_Messages(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":"<div>"},{"type":"text","text":"</div>"}],
			"stop_reason":"end_turn","usage":{"input_tokens":7,"output_tokens":3}}`))
	}))
	defer server.Close()

	inv := NewAnthropicInvoker("sk-ant-test", server.URL)
	resp, err := inv.Invoke(context.Background(), Request{
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 256,
		Prompt:    Prompt{System: "You write HTML.", User: "hero"},
	})
	require.NoError(t, err)

	assert.Equal(t, "<div></div>", resp.Text)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.Equal(t, float64(256), body["max_tokens"])
	assert.NotNil(t, body["system"])
}

func TestAnthropicInvoker_RejectsImages(t *testing.T) {
	inv := NewAnthropicInvoker("sk-ant-test", "http://127.0.0.1:1")
	_, err := inv.Invoke(context.Background(), Request{Kind: KindImage})
	assert.True(t, apperrors.IsUnsupportedConfiguration(err))
}
