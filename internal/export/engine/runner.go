package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robinstudios/dot/internal/common/tracing"
	"github.com/robinstudios/dot/internal/events"
	"github.com/robinstudios/dot/internal/export/processors"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const tracerName = "dot-export"

// dispatchLoop hands queued jobs to runJob while job slots are free.
func (e *Engine) dispatchLoop(ctx context.Context) {
	defer e.wg.Done()
	defer e.abandonQueued(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.queue.Ready():
		}

		for {
			if err := e.jobSlots.Acquire(ctx, 1); err != nil {
				return
			}
			next := e.queue.Dequeue()
			if next == nil {
				e.jobSlots.Release(1)
				break
			}
			e.wg.Add(1)
			go func(jobID string) {
				defer e.wg.Done()
				defer e.jobSlots.Release(1)
				e.runJob(ctx, jobID)
			}(next.JobID)
		}
	}
}

// abandonQueued fails jobs still waiting when the engine stops.
func (e *Engine) abandonQueued(ctx context.Context) {
	for next := e.queue.Dequeue(); next != nil; next = e.queue.Dequeue() {
		e.mu.RLock()
		st := e.active[next.JobID]
		e.mu.RUnlock()
		if st != nil {
			e.finish(ctx, st, nil, ReasonShutdown)
		}
	}
}

type artifactDone struct {
	idx    int
	result *v1.ExportResult
}

// runJob converts every artifact of a job. Artifact failures are recorded in
// their result and never abort the job. The calling goroutine is the only
// writer of the job's progress.
func (e *Engine) runJob(ctx context.Context, jobID string) {
	e.mu.Lock()
	st, ok := e.active[jobID]
	if !ok {
		e.mu.Unlock()
		return
	}
	if st.cancelled.Load() {
		e.mu.Unlock()
		e.finish(ctx, st, nil, ReasonCancelled)
		return
	}
	st.job.Status = v1.JobStatusProcessing
	st.job.UpdatedAt = e.now()
	snapshot := st.job.Clone()
	e.mu.Unlock()

	cfg := snapshot.Config
	log := e.logger.WithJobID(jobID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "export.job",
		attribute.String("job_id", jobID),
		attribute.String("format", string(cfg.Format)),
		attribute.Int("artifacts", len(st.artifacts)))

	e.persist(ctx, snapshot)
	e.publish(ctx, events.ExportJobProgress, snapshot)
	log.Info("export job processing", zap.Int("artifacts", len(st.artifacts)))

	proc, ok := e.processors.Get(cfg.Format)
	if !ok {
		reason := fmt.Sprintf("unsupported export format %q", cfg.Format)
		tracing.EndSpan(span, errors.New(reason))
		e.finish(ctx, st, nil, reason)
		return
	}

	total := len(st.artifacts)
	doneCh := make(chan artifactDone)
	go func() {
		defer close(doneCh)
		var g errgroup.Group
		g.SetLimit(e.cfg.Workers)
		for i, artifact := range st.artifacts {
			if st.cancelled.Load() || ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if st.cancelled.Load() || ctx.Err() != nil {
					return nil
				}
				doneCh <- artifactDone{idx: i, result: e.process(proc, artifact, cfg)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	results := make([]*v1.ExportResult, total)
	completed := 0
	for done := range doneCh {
		results[done.idx] = done.result
		completed++
		if done.result.HasErrors() {
			log.Warn("artifact export failed",
				zap.String("artifact_id", done.result.ArtifactID),
				zap.Strings("errors", done.result.Errors))
		}

		e.mu.Lock()
		st.job.Progress = progressOf(completed, total)
		st.job.UpdatedAt = e.now()
		snapshot = st.job.Clone()
		e.mu.Unlock()
		e.publish(ctx, events.ExportJobProgress, snapshot)
	}

	reason := ""
	switch {
	case completed == total:
	case st.cancelled.Load():
		reason = ReasonCancelled
	case ctx.Err() != nil:
		reason = ReasonShutdown
	}

	collected := make([]v1.ExportResult, 0, total)
	for _, r := range results {
		if r != nil {
			collected = append(collected, *r)
		}
	}
	if reason != "" {
		tracing.EndSpan(span, errors.New(reason))
	} else {
		tracing.EndSpan(span, nil)
	}
	e.finish(ctx, st, collected, reason)
}

// finish moves a job to its terminal state. An empty reason completes it.
func (e *Engine) finish(ctx context.Context, st *jobState, results []v1.ExportResult, reason string) {
	if results == nil {
		results = []v1.ExportResult{}
	}

	e.mu.Lock()
	if _, ok := e.active[st.job.ID]; !ok {
		e.mu.Unlock()
		return
	}
	now := e.now()
	job := st.job
	job.Results = results
	job.UpdatedAt = now
	job.CompletedAt = &now
	if reason == "" {
		job.Status = v1.JobStatusCompleted
		job.Progress = 100
	} else {
		job.Status = v1.JobStatusFailed
		job.Error = reason
	}
	snapshot := job.Clone()
	e.retain(snapshot)
	delete(e.active, job.ID)
	e.mu.Unlock()

	e.persist(ctx, snapshot)
	log := e.logger.WithJobID(snapshot.ID)
	if reason == "" {
		atomic.AddInt64(&e.totalCompleted, 1)
		log.Info("export job completed",
			zap.Int("results", len(snapshot.Results)),
			zap.Strings("failed_artifacts", snapshot.FailedArtifacts()))
		e.publish(ctx, events.ExportJobCompleted, snapshot)
		return
	}
	atomic.AddInt64(&e.totalFailed, 1)
	log.Warn("export job failed", zap.String("reason", reason), zap.Int("results", len(snapshot.Results)))
	e.publish(ctx, events.ExportJobFailed, snapshot)
}

// process converts one artifact, turning errors and panics into result errors.
func (e *Engine) process(proc processors.Processor, artifact v1.DesignArtifact, cfg v1.ExportConfig) (result *v1.ExportResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("processor panicked",
				zap.String("artifact_id", artifact.ID),
				zap.Any("panic", r))
			result = failedResult(artifact.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	out, err := proc.Process(artifact, cfg)
	if err != nil {
		return failedResult(artifact.ID, err.Error())
	}
	if out == nil {
		return failedResult(artifact.ID, "processor returned no result")
	}
	out.ArtifactID = artifact.ID
	if out.Files == nil {
		out.Files = []v1.ExportFile{}
	}
	return out
}

func failedResult(artifactID, msg string) *v1.ExportResult {
	return &v1.ExportResult{ArtifactID: artifactID, Files: []v1.ExportFile{}, Errors: []string{msg}}
}

func progressOf(completed, total int) float64 {
	if total == 0 {
		return 100
	}
	return math.Round(float64(completed)*10000/float64(total)) / 100
}
