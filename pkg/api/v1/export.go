package v1

import (
	"fmt"
	"time"
)

// ExportFormat is the output framework of an export job
type ExportFormat string

const (
	FormatHTML    ExportFormat = "html"
	FormatReact   ExportFormat = "react"
	FormatVue     ExportFormat = "vue"
	FormatAngular ExportFormat = "angular"
	FormatFigma   ExportFormat = "figma"
)

// Valid reports whether f is a known export format
func (f ExportFormat) Valid() bool {
	switch f {
	case FormatHTML, FormatReact, FormatVue, FormatAngular, FormatFigma:
		return true
	}
	return false
}

// Styling is the styling approach of emitted code
type Styling string

const (
	StylingCSS              Styling = "css"
	StylingTailwind         Styling = "tailwind"
	StylingStyledComponents Styling = "styled-components"
	StylingEmotion          Styling = "emotion"
)

// Valid reports whether s is a known styling approach
func (s Styling) Valid() bool {
	switch s {
	case StylingCSS, StylingTailwind, StylingStyledComponents, StylingEmotion:
		return true
	}
	return false
}

// Optimization is the build profile of emitted code
type Optimization string

const (
	OptimizationDevelopment Optimization = "development"
	OptimizationProduction  Optimization = "production"
)

// Valid reports whether o is a known optimization profile
func (o Optimization) Valid() bool {
	return o == OptimizationDevelopment || o == OptimizationProduction
}

// ExportConfig is the caller supplied, immutable configuration of a job
type ExportConfig struct {
	Format       ExportFormat `json:"format"`
	Styling      Styling      `json:"styling"`
	Responsive   bool         `json:"responsive"`
	Optimization Optimization `json:"optimization"`
	Bundling     bool         `json:"bundling"`
}

// WithDefaults returns a copy with empty styling/optimization filled in
func (c ExportConfig) WithDefaults() ExportConfig {
	if c.Styling == "" {
		c.Styling = StylingCSS
	}
	if c.Optimization == "" {
		c.Optimization = OptimizationDevelopment
	}
	return c
}

// Validate checks that every enum field holds a known value
func (c ExportConfig) Validate() error {
	if !c.Format.Valid() {
		return fmt.Errorf("unknown export format %q", c.Format)
	}
	if !c.Styling.Valid() {
		return fmt.Errorf("unknown styling %q", c.Styling)
	}
	if !c.Optimization.Valid() {
		return fmt.Errorf("unknown optimization %q", c.Optimization)
	}
	return nil
}

// JobStatus is the state of an export job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ExportFile is one emitted file
type ExportFile struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	MimeType string `json:"mime_type"`
}

// ExportResult is the outcome of exporting one artifact
type ExportResult struct {
	ArtifactID string       `json:"artifact_id"`
	Files      []ExportFile `json:"files"`
	Preview    string       `json:"preview,omitempty"`
	Errors     []string     `json:"errors,omitempty"`
}

// HasErrors reports whether the artifact failed to export
func (r *ExportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ExportJob is an asynchronous unit of work converting artifacts to code bundles
type ExportJob struct {
	ID          string         `json:"id"`
	ArtifactIDs []string       `json:"artifact_ids"`
	Config      ExportConfig   `json:"config"`
	Status      JobStatus      `json:"status"`
	Progress    float64        `json:"progress"`
	Results     []ExportResult `json:"results"`
	Error       string         `json:"error,omitempty"`
	Priority    int            `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to readers
func (j *ExportJob) Clone() *ExportJob {
	c := *j
	c.ArtifactIDs = append([]string(nil), j.ArtifactIDs...)
	c.Results = make([]ExportResult, len(j.Results))
	for i, r := range j.Results {
		r.Files = append([]ExportFile(nil), r.Files...)
		r.Errors = append([]string(nil), r.Errors...)
		c.Results[i] = r
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// FailedArtifacts returns the ids of artifacts whose result carries errors
func (j *ExportJob) FailedArtifacts() []string {
	var ids []string
	for _, r := range j.Results {
		if r.HasErrors() {
			ids = append(ids, r.ArtifactID)
		}
	}
	return ids
}
