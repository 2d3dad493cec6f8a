// Package events provides event types and utilities for the Dot event system.
package events

// Event types for export jobs
const (
	ExportJobCreated   = "export.job.created"
	ExportJobProgress  = "export.job.progress"
	ExportJobCompleted = "export.job.completed"
	ExportJobFailed    = "export.job.failed"
)

// Event types for generation runs
const (
	GenerationCompleted = "generation.completed"
)

// Event types for packs
const (
	PackInstalled   = "pack.installed"
	PackUninstalled = "pack.uninstalled"
)

// ExportJobSubject returns the subject all events of one export job are published on.
func ExportJobSubject(jobID string) string {
	return "export.job." + jobID
}

// ExportJobWildcardSubject matches the events of every export job.
const ExportJobWildcardSubject = "export.job.*"

// GenerationSubject is the subject generation events are published on.
const GenerationSubject = "generation.completed"

// PackSubject returns the subject events for one pack are published on.
func PackSubject(packID string) string {
	return "pack." + packID
}
