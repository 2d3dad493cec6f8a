package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/generation/service"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, req service.Request) (*service.Result, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req service.Request) (*service.Result, error) {
	return m.generateFunc(ctx, req)
}

func newRouter(gen Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, gen, logger.NewNop())
	return router
}

func post(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoint(t *testing.T) {
	var got service.Request
	gen := &mockGenerator{generateFunc: func(ctx context.Context, req service.Request) (*service.Result, error) {
		got = req
		return &service.Result{
			ID:        "g1",
			Artifacts: []v1.DesignArtifact{{ID: "a1", Style: "modern"}},
			Top:       []string{"a1"},
		}, nil
	}}

	w := post(t, newRouter(gen), "/api/v1/generations", map[string]interface{}{
		"brief":      map[string]string{"prompt": "modern SaaS landing page", "style": "modern"},
		"candidates": 3,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "modern SaaS landing page", got.Brief.Prompt)
	assert.Equal(t, 3, got.Candidates)

	var res service.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "g1", res.ID)
	assert.Equal(t, []string{"a1"}, res.Top)
}

func TestGenerateEndpoint_Errors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		gen := &mockGenerator{generateFunc: func(context.Context, service.Request) (*service.Result, error) {
			return nil, apperrors.ValidationError("prompt", "must not be empty")
		}}
		w := post(t, newRouter(gen), "/api/v1/generations", map[string]interface{}{"brief": map[string]string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("all candidates failed", func(t *testing.T) {
		gen := &mockGenerator{generateFunc: func(context.Context, service.Request) (*service.Result, error) {
			return &service.Result{
					ID:       "g2",
					Failures: []service.CandidateFailure{{Index: 0, Stage: "plan", Code: apperrors.ErrCodeUpstreamTimeout, Retryable: true}},
				},
				apperrors.Wrap(apperrors.UpstreamTimeout("model invocation timed out", nil), "all candidates failed, retry the whole request")
		}}
		w := post(t, newRouter(gen), "/api/v1/generations", map[string]interface{}{"brief": map[string]string{"prompt": "x"}})

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		var body generateFailureResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Retryable)
		assert.Contains(t, body.Error, "retry the whole request")
		require.NotNil(t, body.Result)
		assert.Len(t, body.Result.Failures, 1)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newRouter(&mockGenerator{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/generations", bytes.NewBufferString("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestScoreEndpoint(t *testing.T) {
	artifacts := []v1.DesignArtifact{
		{
			ID:    "b",
			Style: "retro diner",
			DesignSystem: v1.DesignSystem{
				Colors:     []string{"#000000", "#ffffff", "#ff0000"},
				Typography: v1.Typography{Fonts: []string{"Lobster", "Arial"}, BaseFontSize: 18},
			},
			Layout:     "grid",
			Responsive: true,
		},
		{ID: "a", Style: "modern"},
	}

	w := post(t, newRouter(&mockGenerator{}), "/api/v1/designs/score", map[string]interface{}{"artifacts": artifacts})
	require.Equal(t, http.StatusOK, w.Code)

	var res scoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Artifacts, 2)
	for _, a := range res.Artifacts {
		require.NotNil(t, a.Scores)
		assert.NotEmpty(t, a.Cluster)
	}
	assert.Equal(t, "vintage", res.Artifacts[0].Cluster)
	assert.Equal(t, []string{"b", "a"}, res.Top)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "modern", res.Clusters[0].ClusterName)
	assert.Equal(t, "vintage", res.Clusters[1].ClusterName)

	w = post(t, newRouter(&mockGenerator{}), "/api/v1/designs/score", map[string]interface{}{
		"artifacts": []v1.DesignArtifact{{Style: "modern"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
