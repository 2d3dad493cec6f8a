// Package streaming pushes export job events to websocket clients.
package streaming

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/httpmw"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/events/bus"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// SnapshotType is the type of the first message on every stream.
const SnapshotType = "export.job.snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one frame sent to a client.
type Message struct {
	Type      string      `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// JobSource looks up export jobs.
type JobSource interface {
	GetJobStatus(ctx context.Context, id string) *v1.ExportJob
}

// WSHandler streams export job events.
type WSHandler struct {
	jobs     JobSource
	eventBus bus.EventBus
	logger   *logger.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(jobs JobSource, eventBus bus.EventBus, log *logger.Logger) *WSHandler {
	return &WSHandler{
		jobs:     jobs,
		eventBus: eventBus,
		logger:   log.WithFields(zap.String("component", "export-stream")),
	}
}

// StreamJob sends a snapshot of the job followed by every job event until the
// job finishes.
// WS /api/v1/exports/:jobId/stream
func (h *WSHandler) StreamJob(c *gin.Context) {
	jobID := c.Param("jobId")
	job := h.jobs.GetJobStatus(c.Request.Context(), jobID)
	if job == nil {
		httpmw.RespondError(c, h.logger, apperrors.NotFound("export job", jobID))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	client := newClient(uuid.New().String(), jobID, conn, h.logger)

	sub, err := h.eventBus.Subscribe(events.ExportJobSubject(jobID), func(_ context.Context, ev *bus.Event) error {
		client.enqueue(&Message{Type: ev.Type, JobID: jobID, Timestamp: ev.Timestamp, Data: ev.Data}, isFinal(ev.Type))
		return nil
	})
	if err != nil {
		h.logger.Error("Failed to subscribe to job events", zap.String("job_id", jobID), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "event stream unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	h.logger.Info("WebSocket connection established for export job",
		zap.String("client_id", client.ID),
		zap.String("job_id", jobID))

	// Resolve the snapshot after subscribing so no transition is missed.
	if latest := h.jobs.GetJobStatus(c.Request.Context(), jobID); latest != nil {
		job = latest
	}
	client.enqueue(&Message{Type: SnapshotType, JobID: jobID, Timestamp: time.Now().UTC(), Data: job}, job.Status.IsTerminal())

	go client.writePump(sub)
	go client.readPump()
}

func isFinal(eventType string) bool {
	return eventType == events.ExportJobCompleted || eventType == events.ExportJobFailed
}
