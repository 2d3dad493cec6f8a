// Package repository persists export job records.
package repository

import (
	"context"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// ListOptions filters job listings. Zero values mean no filter.
type ListOptions struct {
	Status v1.JobStatus
	Limit  int
}

// Repository stores export jobs. Get returns a NOT_FOUND AppError for
// unknown ids.
type Repository interface {
	Save(ctx context.Context, job *v1.ExportJob) error
	Get(ctx context.Context, id string) (*v1.ExportJob, error)
	List(ctx context.Context, opts ListOptions) ([]*v1.ExportJob, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
