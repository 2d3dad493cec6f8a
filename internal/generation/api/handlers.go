// Package api exposes generation and design scoring over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/httpmw"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/design/clustering"
	"github.com/robinstudios/dot/internal/design/scoring"
	"github.com/robinstudios/dot/internal/generation/service"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Generator runs generation requests.
type Generator interface {
	Generate(ctx context.Context, req service.Request) (*service.Result, error)
}

type Handlers struct {
	generator Generator
	logger    *logger.Logger
}

func NewHandlers(gen Generator, log *logger.Logger) *Handlers {
	return &Handlers{
		generator: gen,
		logger:    log.WithFields(zap.String("component", "generation-handlers")),
	}
}

// RegisterRoutes mounts the generation routes under /api/v1.
func RegisterRoutes(router *gin.Engine, gen Generator, log *logger.Logger) *Handlers {
	h := NewHandlers(gen, log)
	api := router.Group("/api/v1")
	api.POST("/generations", h.httpGenerate)
	api.POST("/designs/score", h.httpScore)
	return h
}

type generateFailureResponse struct {
	httpmw.ErrorBody
	Result *service.Result `json:"result,omitempty"`
}

func (h *Handlers) httpGenerate(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmw.BindError(c, err)
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		if res == nil {
			httpmw.RespondError(c, h.logger, err)
			return
		}
		c.JSON(apperrors.GetHTTPStatus(err), generateFailureResponse{
			ErrorBody: httpmw.BodyFor(c, h.logger, err),
			Result:    res,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

type scoreRequest struct {
	Artifacts []v1.DesignArtifact `json:"artifacts"`
}

type scoreResponse struct {
	Artifacts []v1.DesignArtifact    `json:"artifacts"`
	Clusters  []v1.ClusterAssignment `json:"clusters"`
	Top       []string               `json:"top"`
}

func (h *Handlers) httpScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmw.BindError(c, err)
		return
	}
	for _, a := range req.Artifacts {
		if a.ID == "" {
			httpmw.RespondError(c, h.logger, apperrors.ValidationError("artifacts", "every artifact needs an id"))
			return
		}
	}

	scoring.Apply(req.Artifacts)
	clustering.Annotate(req.Artifacts)
	res := clustering.Cluster(req.Artifacts)

	artifacts := req.Artifacts
	if artifacts == nil {
		artifacts = []v1.DesignArtifact{}
	}
	c.JSON(http.StatusOK, scoreResponse{Artifacts: artifacts, Clusters: res.Clusters, Top: res.Top})
}
