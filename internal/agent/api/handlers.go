// Package api exposes the agent registry, packs and selector over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/robinstudios/dot/internal/agent/packs"
	"github.com/robinstudios/dot/internal/agent/registry"
	"github.com/robinstudios/dot/internal/agent/selector"
	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/httpmw"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/events/bus"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

type Handlers struct {
	registry *registry.Registry
	packs    *packs.Manager
	selector *selector.Selector
	eventBus bus.EventBus
	logger   *logger.Logger
}

func NewHandlers(reg *registry.Registry, pm *packs.Manager, sel *selector.Selector, eventBus bus.EventBus, log *logger.Logger) *Handlers {
	return &Handlers{
		registry: reg,
		packs:    pm,
		selector: sel,
		eventBus: eventBus,
		logger:   log.WithFields(zap.String("component", "agent-handlers")),
	}
}

// RegisterRoutes mounts agent and pack routes under /api/v1.
func RegisterRoutes(router *gin.Engine, reg *registry.Registry, pm *packs.Manager, sel *selector.Selector, eventBus bus.EventBus, log *logger.Logger) *Handlers {
	h := NewHandlers(reg, pm, sel, eventBus, log)
	api := router.Group("/api/v1")
	api.GET("/agents", h.httpListAgents)
	api.GET("/agents/tasks/:taskType", h.httpAgentsForTask)
	api.POST("/agents/select", h.httpSelect)
	api.GET("/packs", h.httpListPacks)
	api.POST("/packs/:packId/install", h.httpInstallPack)
	api.POST("/packs/:packId/uninstall", h.httpUninstallPack)
	return h
}

type listAgentsResponse struct {
	Agents []v1.Agent `json:"agents"`
	Total  int        `json:"total"`
}

func (h *Handlers) httpListAgents(c *gin.Context) {
	agents := h.registry.ListAgents()
	if agents == nil {
		agents = []v1.Agent{}
	}
	c.JSON(http.StatusOK, listAgentsResponse{Agents: agents, Total: len(agents)})
}

type agentsForTaskResponse struct {
	TaskType v1.TaskType `json:"task_type"`
	AgentIDs []string    `json:"agent_ids"`
}

func (h *Handlers) httpAgentsForTask(c *gin.Context) {
	taskType := v1.TaskType(c.Param("taskType"))
	ids := h.registry.GetAgentsForTask(taskType)
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, agentsForTaskResponse{TaskType: taskType, AgentIDs: ids})
}

type selectRequest struct {
	Task    v1.GenerationTask         `json:"task"`
	Context selector.SelectionContext `json:"context"`
}

type selectResponse struct {
	Agents []selector.ScoredAgent `json:"agents"`
}

func (h *Handlers) httpSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmw.BindError(c, err)
		return
	}
	if req.Task.Type == "" {
		httpmw.RespondError(c, h.logger, apperrors.ValidationError("task.type", "is required"))
		return
	}
	agents := h.selector.Select(req.Task, req.Context)
	if agents == nil {
		agents = []selector.ScoredAgent{}
	}
	c.JSON(http.StatusOK, selectResponse{Agents: agents})
}

type listPacksResponse struct {
	Packs []v1.Pack `json:"packs"`
	Total int       `json:"total"`
}

func (h *Handlers) httpListPacks(c *gin.Context) {
	list := h.packs.ListPacks()
	if list == nil {
		list = []v1.Pack{}
	}
	c.JSON(http.StatusOK, listPacksResponse{Packs: list, Total: len(list)})
}

type packStateResponse struct {
	PackID    string `json:"pack_id"`
	Installed bool   `json:"installed"`
}

func (h *Handlers) httpInstallPack(c *gin.Context) {
	id := c.Param("packId")
	already := h.packs.IsInstalled(id)

	installed, err := h.packs.InstallPack(id)
	if err != nil {
		httpmw.RespondError(c, h.logger, err)
		return
	}
	if !already {
		h.publish(c.Request.Context(), events.PackInstalled, id)
	}
	c.JSON(http.StatusOK, packStateResponse{PackID: id, Installed: installed})
}

func (h *Handlers) httpUninstallPack(c *gin.Context) {
	id := c.Param("packId")
	was := h.packs.IsInstalled(id)

	if err := h.packs.UninstallPack(id); err != nil {
		httpmw.RespondError(c, h.logger, err)
		return
	}
	if was {
		h.publish(c.Request.Context(), events.PackUninstalled, id)
	}
	c.JSON(http.StatusOK, packStateResponse{PackID: id, Installed: false})
}

func (h *Handlers) publish(ctx context.Context, eventType, packID string) {
	if h.eventBus == nil {
		return
	}
	event := bus.NewEvent(eventType, "agent-handlers", map[string]interface{}{"pack_id": packID})
	if err := h.eventBus.Publish(ctx, events.PackSubject(packID), event); err != nil {
		h.logger.Warn("failed to publish pack event", zap.String("pack_id", packID), zap.Error(err))
	}
}
