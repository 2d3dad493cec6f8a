package repository

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// MemoryRepository keeps job records in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*v1.ExportJob
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]*v1.ExportJob)}
}

func (r *MemoryRepository) Save(ctx context.Context, job *v1.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*v1.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("export job", id)
	}
	return job.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context, opts ListOptions) ([]*v1.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*v1.ExportJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if opts.Status != "" && job.Status != opts.Status {
			continue
		}
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return apperrors.NotFound("export job", id)
	}
	delete(r.jobs, id)
	return nil
}

func (r *MemoryRepository) Close() error { return nil }
