package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/db"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// SQLRepository stores jobs in SQLite or PostgreSQL. Structured fields are
// kept as JSON text columns.
type SQLRepository struct {
	db *sqlx.DB // writer
	ro *sqlx.DB // reader
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository creates the repository on a shared pool and makes sure
// the schema exists.
func NewSQLRepository(pool *db.Pool) (*SQLRepository, error) {
	repo := &SQLRepository{db: pool.Writer(), ro: pool.Reader()}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS export_jobs (
	id TEXT PRIMARY KEY,
	artifact_ids TEXT NOT NULL,
	config TEXT NOT NULL,
	status TEXT NOT NULL,
	progress DOUBLE PRECISION NOT NULL DEFAULT 0,
	results TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NULL
)`

func (r *SQLRepository) initSchema() error {
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status)`); err != nil {
		return err
	}
	_, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_export_jobs_created_at ON export_jobs(created_at)`)
	return err
}

type jobRow struct {
	ID          string       `db:"id"`
	ArtifactIDs string       `db:"artifact_ids"`
	Config      string       `db:"config"`
	Status      string       `db:"status"`
	Progress    float64      `db:"progress"`
	Results     string       `db:"results"`
	Error       string       `db:"error"`
	Priority    int          `db:"priority"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func toRow(job *v1.ExportJob) (*jobRow, error) {
	ids, err := json.Marshal(nonNil(job.ArtifactIDs))
	if err != nil {
		return nil, err
	}
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return nil, err
	}
	results := job.Results
	if results == nil {
		results = []v1.ExportResult{}
	}
	res, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	row := &jobRow{
		ID:          job.ID,
		ArtifactIDs: string(ids),
		Config:      string(cfg),
		Status:      string(job.Status),
		Progress:    job.Progress,
		Results:     string(res),
		Error:       job.Error,
		Priority:    job.Priority,
		CreatedAt:   job.CreatedAt.UTC(),
		UpdatedAt:   job.UpdatedAt.UTC(),
	}
	if job.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: job.CompletedAt.UTC(), Valid: true}
	}
	return row, nil
}

func (row *jobRow) toJob() (*v1.ExportJob, error) {
	job := &v1.ExportJob{
		ID:        row.ID,
		Status:    v1.JobStatus(row.Status),
		Progress:  row.Progress,
		Error:     row.Error,
		Priority:  row.Priority,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.ArtifactIDs), &job.ArtifactIDs); err != nil {
		return nil, fmt.Errorf("decode artifact ids of job %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Config), &job.Config); err != nil {
		return nil, fmt.Errorf("decode config of job %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Results), &job.Results); err != nil {
		return nil, fmt.Errorf("decode results of job %s: %w", row.ID, err)
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time.UTC()
		job.CompletedAt = &t
	}
	return job, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *SQLRepository) Save(ctx context.Context, job *v1.ExportJob) error {
	row, err := toRow(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO export_jobs (id, artifact_ids, config, status, progress, results, error, priority, created_at, updated_at, completed_at)
		VALUES (:id, :artifact_ids, :config, :status, :progress, :results, :error, :priority, :created_at, :updated_at, :completed_at)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			results = excluded.results,
			error = excluded.error,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`, row)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*v1.ExportJob, error) {
	var row jobRow
	err := r.ro.GetContext(ctx, &row, r.ro.Rebind(`SELECT * FROM export_jobs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("export job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return row.toJob()
}

func (r *SQLRepository) List(ctx context.Context, opts ListOptions) ([]*v1.ExportJob, error) {
	query := `SELECT * FROM export_jobs`
	var args []interface{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []jobRow
	if err := r.ro.SelectContext(ctx, &rows, r.ro.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]*v1.ExportJob, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toJob()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM export_jobs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("export job", id)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *SQLRepository) Close() error {
	return nil
}
