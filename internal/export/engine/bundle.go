package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// ManifestName is the bundle entry describing its contents.
const ManifestName = "manifest.json"

// Bundle is a downloadable archive of a completed job.
type Bundle struct {
	JobID       string
	FileName    string
	ContentType string
	Data        []byte
}

type manifest struct {
	JobID           string             `json:"job_id"`
	Format          v1.ExportFormat    `json:"format"`
	Styling         v1.Styling         `json:"styling"`
	CreatedAt       time.Time          `json:"created_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	Message         string             `json:"message,omitempty"`
	Artifacts       []manifestArtifact `json:"artifacts"`
	FailedArtifacts []string           `json:"failed_artifacts"`
}

type manifestArtifact struct {
	ID     string   `json:"id"`
	Files  []string `json:"files"`
	Errors []string `json:"errors,omitempty"`
}

// DownloadResults packages the files of a completed job as a zip archive.
// Each artifact's files live under a directory named after the artifact.
func (e *Engine) DownloadResults(ctx context.Context, id string) (*Bundle, error) {
	job, err := e.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != v1.JobStatusCompleted {
		return nil, apperrors.Conflict(fmt.Sprintf("export job is not ready: status %s", job.Status))
	}

	data, err := buildArchive(job)
	if err != nil {
		return nil, apperrors.InternalError("failed to build export bundle", err)
	}
	return &Bundle{
		JobID:       job.ID,
		FileName:    fmt.Sprintf("export-%s.zip", job.ID),
		ContentType: "application/zip",
		Data:        data,
	}, nil
}

func buildArchive(job *v1.ExportJob) ([]byte, error) {
	modified := job.UpdatedAt
	if job.CompletedAt != nil {
		modified = *job.CompletedAt
	}

	m := manifest{
		JobID:           job.ID,
		Format:          job.Config.Format,
		Styling:         job.Config.Styling,
		CreatedAt:       job.CreatedAt,
		CompletedAt:     job.CompletedAt,
		Artifacts:       make([]manifestArtifact, 0, len(job.Results)),
		FailedArtifacts: job.FailedArtifacts(),
	}
	if m.FailedArtifacts == nil {
		m.FailedArtifacts = []string{}
	} else {
		m.Message = PartialExportMessage
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, r := range job.Results {
		entry := manifestArtifact{ID: r.ArtifactID, Files: make([]string, 0, len(r.Files)), Errors: r.Errors}
		for _, f := range r.Files {
			name := path.Join(r.ArtifactID, f.Name)
			if err := writeEntry(zw, name, []byte(f.Content), modified); err != nil {
				return nil, err
			}
			entry.Files = append(entry.Files, name)
		}
		m.Artifacts = append(m.Artifacts, entry)
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, raw, modified); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, content []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
