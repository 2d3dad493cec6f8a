// Package engine runs asynchronous bulk export jobs: it validates and queues
// jobs, converts their artifacts on a bounded worker pool, tracks progress
// and packages the results for download.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/events/bus"
	"github.com/robinstudios/dot/internal/export/processors"
	"github.com/robinstudios/dot/internal/export/queue"
	"github.com/robinstudios/dot/internal/export/repository"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Common errors
var (
	ErrEngineAlreadyRunning = errors.New("export engine is already running")
	ErrEngineNotRunning     = errors.New("export engine is not running")
)

// Failure reasons recorded on failed jobs.
const (
	ReasonCancelled   = "cancelled"
	ReasonShutdown    = "cancelled: export engine stopped"
	ReasonInterrupted = "interrupted: export engine restarted before the job finished"
)

// PartialExportMessage describes a completed job with failed artifacts.
const PartialExportMessage = "some designs could not be exported"

// Config holds engine configuration.
type Config struct {
	Workers           int // artifacts converted concurrently per job
	MaxConcurrentJobs int // jobs processed at the same time
	RetainJobs        int // finished jobs kept in memory
	QueueSize         int // 0 means unbounded
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{Workers: 4, MaxConcurrentJobs: 2, RetainJobs: 256}
}

// Stats contains engine statistics.
type Stats struct {
	QueuedJobs     int   `json:"queued_jobs"`
	ActiveJobs     int   `json:"active_jobs"`
	MaxConcurrent  int   `json:"max_concurrent"`
	TotalCompleted int64 `json:"total_completed"`
	TotalFailed    int64 `json:"total_failed"`
}

// JobOption customises a new job.
type JobOption func(*v1.ExportJob)

// WithPriority sets the dispatch priority. Higher runs first.
func WithPriority(p int) JobOption {
	return func(j *v1.ExportJob) { j.Priority = p }
}

// jobState is an unfinished job. Its owning goroutine is the only writer of
// the job's results and progress; readers take snapshots under Engine.mu.
type jobState struct {
	job       *v1.ExportJob
	artifacts []v1.DesignArtifact
	cancelled atomic.Bool
}

// Engine manages export jobs.
type Engine struct {
	cfg        Config
	processors *processors.Registry
	repo       repository.Repository
	eventBus   bus.EventBus
	logger     *logger.Logger
	queue      *queue.JobQueue
	jobSlots   *semaphore.Weighted
	now        func() time.Time

	mu       sync.RWMutex
	active   map[string]*jobState
	finished *lru.Cache[string, *v1.ExportJob]

	totalCompleted int64
	totalFailed    int64

	runMu   sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine. repo and eventBus may be nil.
func New(cfg Config, reg *processors.Registry, repo repository.Repository, eventBus bus.EventBus, log *logger.Logger) (*Engine, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = def.MaxConcurrentJobs
	}
	if cfg.RetainJobs <= 0 {
		cfg.RetainJobs = def.RetainJobs
	}
	if reg == nil {
		reg = processors.Default()
	}
	if repo == nil {
		repo = repository.NewMemoryRepository()
	}

	finished, err := lru.New[string, *v1.ExportJob](cfg.RetainJobs)
	if err != nil {
		return nil, fmt.Errorf("create job cache: %w", err)
	}
	return &Engine{
		cfg:        cfg,
		processors: reg,
		repo:       repo,
		eventBus:   eventBus,
		logger:     log.WithFields(zap.String("component", "export-engine")),
		queue:      queue.New(cfg.QueueSize),
		jobSlots:   semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		now:        func() time.Time { return time.Now().UTC() },
		active:     make(map[string]*jobState),
		finished:   finished,
	}, nil
}

// Start begins dispatching queued jobs. Stored jobs left pending or
// processing by a previous process are recorded as failed.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return ErrEngineAlreadyRunning
	}
	e.failInterrupted(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.running = true
	e.stopped = false
	e.cancel = cancel

	e.logger.Info("export engine starting",
		zap.Int("workers", e.cfg.Workers),
		zap.Int("max_concurrent_jobs", e.cfg.MaxConcurrentJobs))

	e.wg.Add(1)
	go e.dispatchLoop(runCtx)
	return nil
}

// Stop stops dispatching and waits for running jobs to wind down. Jobs that
// were interrupted are recorded as failed.
func (e *Engine) Stop() error {
	e.runMu.Lock()
	if !e.running {
		e.runMu.Unlock()
		return ErrEngineNotRunning
	}
	e.running = false
	e.stopped = true
	e.cancel()
	e.runMu.Unlock()

	e.wg.Wait()
	e.logger.Info("export engine stopped")
	return nil
}

// failInterrupted records stored unfinished jobs this engine does not own
// as failed.
func (e *Engine) failInterrupted(ctx context.Context) {
	for _, status := range []v1.JobStatus{v1.JobStatusPending, v1.JobStatusProcessing} {
		jobs, err := e.repo.List(ctx, repository.ListOptions{Status: status})
		if err != nil {
			e.logger.Error("failed to list unfinished export jobs", zap.Error(err))
			continue
		}
		for _, job := range jobs {
			e.mu.RLock()
			_, owned := e.active[job.ID]
			e.mu.RUnlock()
			if owned {
				continue
			}
			now := e.now()
			job.Status = v1.JobStatusFailed
			job.Error = ReasonInterrupted
			job.UpdatedAt = now
			job.CompletedAt = &now
			e.retain(job)
			atomic.AddInt64(&e.totalFailed, 1)
			e.persist(ctx, job)
			e.publish(ctx, events.ExportJobFailed, job)
			e.logger.WithJobID(job.ID).Warn("interrupted export job marked failed", zap.String("was", string(status)))
		}
	}
}

// CreateJob validates the configuration and queues a job for the artifacts.
// A format without a processor is recorded as a failed job; its id is
// returned together with the configuration error. A stopped engine accepts
// no new jobs until it is started again.
func (e *Engine) CreateJob(ctx context.Context, artifacts []v1.DesignArtifact, cfg v1.ExportConfig, opts ...JobOption) (string, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return "", apperrors.ValidationError("config", err.Error())
	}
	if len(artifacts) == 0 {
		return "", apperrors.ValidationError("artifacts", "at least one artifact is required")
	}
	ids := make([]string, len(artifacts))
	seen := make(map[string]bool, len(artifacts))
	for i, a := range artifacts {
		if a.ID == "" {
			return "", apperrors.ValidationError("artifacts", fmt.Sprintf("artifact %d has no id", i))
		}
		if !validArtifactID(a.ID) {
			return "", apperrors.ValidationError("artifacts", fmt.Sprintf("artifact id %q cannot name a bundle directory", a.ID))
		}
		if seen[a.ID] {
			return "", apperrors.ValidationError("artifacts", fmt.Sprintf("duplicate artifact id %q", a.ID))
		}
		seen[a.ID] = true
		ids[i] = a.ID
	}

	now := e.now()
	job := &v1.ExportJob{
		ID:          uuid.New().String(),
		ArtifactIDs: ids,
		Config:      cfg,
		Status:      v1.JobStatusPending,
		Results:     []v1.ExportResult{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(job)
	}
	log := e.logger.WithJobID(job.ID)

	if _, ok := e.processors.Get(cfg.Format); !ok {
		job.Status = v1.JobStatusFailed
		job.Error = fmt.Sprintf("unsupported export format %q", cfg.Format)
		job.CompletedAt = &now
		e.retain(job)
		atomic.AddInt64(&e.totalFailed, 1)
		e.persist(ctx, job)
		e.publish(ctx, events.ExportJobFailed, job)
		log.Warn("export job rejected", zap.String("format", string(cfg.Format)))
		return job.ID, apperrors.UnsupportedConfiguration(
			fmt.Sprintf("configuration not supported: no processor for export format %q", cfg.Format), nil)
	}

	// runMu orders the enqueue before Stop drains the queue.
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.stopped {
		return "", apperrors.ServiceUnavailable("export engine")
	}

	st := &jobState{job: job, artifacts: append([]v1.DesignArtifact(nil), artifacts...)}
	e.mu.Lock()
	e.active[job.ID] = st
	e.mu.Unlock()

	e.persist(ctx, job.Clone())
	e.publish(ctx, events.ExportJobCreated, job.Clone())
	if err := e.queue.Enqueue(job.ID, job.Priority); err != nil {
		e.mu.Lock()
		delete(e.active, job.ID)
		e.mu.Unlock()
		_ = e.repo.Delete(context.WithoutCancel(ctx), job.ID)
		log.Warn("export job not queued", zap.Error(err))
		if errors.Is(err, queue.ErrQueueFull) {
			return "", apperrors.ServiceUnavailable("export queue")
		}
		return "", apperrors.InternalError("failed to queue export job", err)
	}

	log.Info("export job created",
		zap.Int("artifacts", len(ids)),
		zap.String("format", string(cfg.Format)),
		zap.Int("priority", job.Priority))
	return job.ID, nil
}

// validArtifactID reports whether id can be used as a single directory name
// at the root of a bundle.
func validArtifactID(id string) bool {
	if id == "." || id == ".." || id == ManifestName {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

// GetJobStatus returns a snapshot of the job, or nil when it is unknown.
func (e *Engine) GetJobStatus(ctx context.Context, id string) *v1.ExportJob {
	job, err := e.lookup(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			e.logger.Error("failed to load export job", zap.String("job_id", id), zap.Error(err))
		}
		return nil
	}
	return job
}

// ListJobs lists stored jobs, overlaying live progress of unfinished ones.
func (e *Engine) ListJobs(ctx context.Context, opts repository.ListOptions) ([]*v1.ExportJob, error) {
	jobs, err := e.repo.List(ctx, opts)
	if err != nil {
		return nil, apperrors.InternalError("failed to list export jobs", err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i, j := range jobs {
		if st, ok := e.active[j.ID]; ok {
			jobs[i] = st.job.Clone()
		}
	}
	return jobs, nil
}

// CancelJob stops a job. Artifacts already being converted finish and no new
// artifact starts; unless every artifact was already done the job ends failed
// with reason "cancelled". Cancelling a finished job is a conflict.
func (e *Engine) CancelJob(ctx context.Context, id string) error {
	e.mu.Lock()
	st, ok := e.active[id]
	if !ok {
		e.mu.Unlock()
		job, err := e.lookup(ctx, id)
		if err != nil {
			return err
		}
		return apperrors.Conflict(fmt.Sprintf("export job %s already %s", id, job.Status))
	}
	st.cancelled.Store(true)
	dequeued := st.job.Status == v1.JobStatusPending && e.queue.Remove(id)
	e.mu.Unlock()

	e.logger.Info("export job cancellation requested", zap.String("job_id", id), zap.Bool("was_queued", dequeued))
	if dequeued {
		e.finish(ctx, st, nil, ReasonCancelled)
	}
	return nil
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	active := 0
	for _, st := range e.active {
		if st.job.Status == v1.JobStatusProcessing {
			active++
		}
	}
	e.mu.RUnlock()
	return Stats{
		QueuedJobs:     e.queue.Len(),
		ActiveJobs:     active,
		MaxConcurrent:  e.cfg.MaxConcurrentJobs,
		TotalCompleted: atomic.LoadInt64(&e.totalCompleted),
		TotalFailed:    atomic.LoadInt64(&e.totalFailed),
	}
}

// lookup finds a job in memory, then in the repository.
func (e *Engine) lookup(ctx context.Context, id string) (*v1.ExportJob, error) {
	e.mu.RLock()
	if st, ok := e.active[id]; ok {
		job := st.job.Clone()
		e.mu.RUnlock()
		return job, nil
	}
	e.mu.RUnlock()

	if job, ok := e.finished.Get(id); ok {
		return job.Clone(), nil
	}
	return e.repo.Get(ctx, id)
}

func (e *Engine) retain(job *v1.ExportJob) {
	e.finished.Add(job.ID, job.Clone())
}

func (e *Engine) persist(ctx context.Context, job *v1.ExportJob) {
	if err := e.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		e.logger.Error("failed to persist export job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, eventType string, job *v1.ExportJob) {
	if e.eventBus == nil {
		return
	}
	data := map[string]interface{}{
		"job_id":   job.ID,
		"status":   string(job.Status),
		"progress": job.Progress,
		"total":    len(job.ArtifactIDs),
	}
	if job.Error != "" {
		data["error"] = job.Error
	}
	if job.Status.IsTerminal() {
		failed := job.FailedArtifacts()
		data["failed_artifacts"] = failed
		if job.Status == v1.JobStatusCompleted && len(failed) > 0 {
			data["message"] = PartialExportMessage
		}
	}
	event := bus.NewEvent(eventType, "export-engine", data)
	if err := e.eventBus.Publish(context.WithoutCancel(ctx), events.ExportJobSubject(job.ID), event); err != nil {
		e.logger.Warn("failed to publish export event", zap.String("job_id", job.ID), zap.Error(err))
	}
}
