package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StagePlan    Stage = "plan"
	StageDraft   Stage = "draft"
	StageEnhance Stage = "enhance"
	StageAssets  Stage = "assets"
)

// ErrEmptyDraft is returned when the draft stage yields no code.
var ErrEmptyDraft = errors.New("draft stage returned no code")

// ErrEmptyEnhancement is recorded when the enhance stage yields no code.
var ErrEmptyEnhancement = errors.New("enhance stage returned no code")

// PlanParseError reports a planning response that is not a well-formed plan.
// It is fatal for the candidate.
type PlanParseError struct {
	Raw string
	Err error
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("could not parse design plan: %v", e.Err)
}

func (e *PlanParseError) Unwrap() error { return e.Err }

// StageError reports a fatal failure of a stage without a fallback.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage a pipeline error belongs to, or "" when it
// did not come from a stage.
func FailedStage(err error) Stage {
	var pe *PlanParseError
	if errors.As(err, &pe) {
		return StagePlan
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// EnhanceOutcome is the result of the best-effort enhance stage. Exactly one
// of Code and Err is meaningful.
type EnhanceOutcome struct {
	Code string
	Err  error
}

// Ok reports whether enhancement produced code.
func (o EnhanceOutcome) Ok() bool {
	return o.Err == nil
}

// Resolve returns the enhanced code, or the draft when enhancement failed.
func (o EnhanceOutcome) Resolve(draft string) (string, bool) {
	if o.Ok() {
		return o.Code, true
	}
	return draft, false
}
