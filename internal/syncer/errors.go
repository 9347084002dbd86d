package syncer

import (
	"errors"
	"fmt"
)

// Stage names the step of the run a failure came from; it ends up in the
// process exit diagnostics so the operator can tell a fetch problem from a
// bookkeeping one.
type Stage string

const (
	StagePlan       Stage = "plan"
	StageFetch      Stage = "fetch"
	StageUpload     Stage = "upload"
	StageCheckpoint Stage = "checkpoint-write"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync failed at %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ErrAlreadyRunning means another invocation holds the run lock. Overlapping
// schedules are expected, so callers treat this as a clean skip.
var ErrAlreadyRunning = errors.New("another sync run is already in progress")
