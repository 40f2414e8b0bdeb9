package orchestrator

import (
	"errors"
	"fmt"

	"github.com/kingrea/gridrun/internal/module"
)

var (
	// ErrPhaseOrder is returned when a run is asked to re-enter or go back to
	// a phase.
	ErrPhaseOrder = errors.New("orchestrator: phase out of order")
	// ErrRunAborted is returned for any phase requested after a failure.
	ErrRunAborted = errors.New("orchestrator: run aborted")
	// ErrRunFinished is returned for any phase requested after Finish.
	ErrRunFinished = errors.New("orchestrator: run finished")
	// ErrStateNotFound is returned when no persisted run state exists yet.
	ErrStateNotFound = errors.New("orchestrator: state not found")
)

// PhaseExecutionError reports the unit whose phase implementation failed.
// The run stops at that unit.
type PhaseExecutionError struct {
	Phase    module.Phase
	ModuleID string
	Err      error
}

func (e *PhaseExecutionError) Error() string {
	return fmt.Sprintf("orchestrator: %s failed in module %s: %v", e.Phase, e.ModuleID, e.Err)
}

func (e *PhaseExecutionError) Unwrap() error {
	return e.Err
}
