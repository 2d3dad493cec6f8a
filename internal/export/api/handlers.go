// Package api exposes export jobs over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/httpmw"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/events/bus"
	"github.com/robinstudios/dot/internal/export/engine"
	"github.com/robinstudios/dot/internal/export/repository"
	"github.com/robinstudios/dot/internal/export/streaming"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Exporter runs export jobs.
type Exporter interface {
	CreateJob(ctx context.Context, artifacts []v1.DesignArtifact, cfg v1.ExportConfig, opts ...engine.JobOption) (string, error)
	GetJobStatus(ctx context.Context, id string) *v1.ExportJob
	ListJobs(ctx context.Context, opts repository.ListOptions) ([]*v1.ExportJob, error)
	DownloadResults(ctx context.Context, id string) (*engine.Bundle, error)
	CancelJob(ctx context.Context, id string) error
	Stats() engine.Stats
}

type Handlers struct {
	exporter Exporter
	logger   *logger.Logger
}

func NewHandlers(exp Exporter, log *logger.Logger) *Handlers {
	return &Handlers{
		exporter: exp,
		logger:   log.WithFields(zap.String("component", "export-handlers")),
	}
}

// RegisterRoutes mounts the export routes under /api/v1.
func RegisterRoutes(router *gin.Engine, exp Exporter, eventBus bus.EventBus, log *logger.Logger) *Handlers {
	h := NewHandlers(exp, log)
	ws := streaming.NewWSHandler(exp, eventBus, log)

	api := router.Group("/api/v1")
	api.POST("/exports", h.httpCreateExport)
	api.GET("/exports", h.httpListExports)
	api.GET("/exports/stats", h.httpStats)
	api.GET("/exports/:jobId", h.httpGetExport)
	api.GET("/exports/:jobId/download", h.httpDownload)
	api.POST("/exports/:jobId/cancel", h.httpCancel)
	api.GET("/exports/:jobId/stream", ws.StreamJob)
	return h
}

type createExportRequest struct {
	Artifacts []v1.DesignArtifact `json:"artifacts"`
	Config    v1.ExportConfig     `json:"config"`
	Priority  int                 `json:"priority"`
}

type createExportResponse struct {
	JobID  string       `json:"job_id"`
	Status v1.JobStatus `json:"status"`
}

func (h *Handlers) httpCreateExport(c *gin.Context) {
	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmw.BindError(c, err)
		return
	}

	id, err := h.exporter.CreateJob(c.Request.Context(), req.Artifacts, req.Config, engine.WithPriority(req.Priority))
	if err != nil {
		body := httpmw.BodyFor(c, h.logger, err)
		body.JobID = id
		c.JSON(apperrors.GetHTTPStatus(err), body)
		return
	}
	c.JSON(http.StatusAccepted, createExportResponse{JobID: id, Status: v1.JobStatusPending})
}

type listExportsResponse struct {
	Jobs  []*v1.ExportJob `json:"jobs"`
	Total int             `json:"total"`
}

func (h *Handlers) httpListExports(c *gin.Context) {
	var opts repository.ListOptions
	if s := c.Query("status"); s != "" {
		status := v1.JobStatus(s)
		switch status {
		case v1.JobStatusPending, v1.JobStatusProcessing, v1.JobStatusCompleted, v1.JobStatusFailed:
			opts.Status = status
		default:
			httpmw.RespondError(c, h.logger, apperrors.ValidationError("status", "unknown job status "+s))
			return
		}
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			httpmw.RespondError(c, h.logger, apperrors.ValidationError("limit", "must be a non-negative integer"))
			return
		}
		opts.Limit = limit
	}

	jobs, err := h.exporter.ListJobs(c.Request.Context(), opts)
	if err != nil {
		httpmw.RespondError(c, h.logger, err)
		return
	}
	if jobs == nil {
		jobs = []*v1.ExportJob{}
	}
	c.JSON(http.StatusOK, listExportsResponse{Jobs: jobs, Total: len(jobs)})
}

func (h *Handlers) httpStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.exporter.Stats())
}

func (h *Handlers) httpGetExport(c *gin.Context) {
	id := c.Param("jobId")
	job := h.exporter.GetJobStatus(c.Request.Context(), id)
	if job == nil {
		httpmw.RespondError(c, h.logger, apperrors.NotFound("export job", id))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handlers) httpDownload(c *gin.Context) {
	bundle, err := h.exporter.DownloadResults(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		httpmw.RespondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+bundle.FileName+`"`)
	c.Data(http.StatusOK, bundle.ContentType, bundle.Data)
}

type cancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

func (h *Handlers) httpCancel(c *gin.Context) {
	id := c.Param("jobId")
	if err := h.exporter.CancelJob(c.Request.Context(), id); err != nil {
		httpmw.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, cancelResponse{JobID: id, Cancelled: true})
}
