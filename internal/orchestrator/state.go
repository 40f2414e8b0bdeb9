package orchestrator

import (
	"errors"
	"time"

	"github.com/kingrea/gridrun/internal/module"
)

// RunStatus enumerates coarse run states.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
)

// RunState captures the persisted snapshot of one orchestration run.
type RunState struct {
	RunID       string        `json:"run_id"`
	ScenarioDir string        `json:"scenario_dir,omitempty"`
	Target      string        `json:"target,omitempty"`
	Features    []string      `json:"features"`
	Modules     []string      `json:"modules"`
	Status      RunStatus     `json:"status"`
	Phases      []PhaseRecord `json:"phases,omitempty"`
	// Error holds the failure that aborted the run.
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PhaseRecord is the outcome of one phase within a run.
type PhaseRecord struct {
	Phase        module.Phase `json:"phase"`
	Invoked      []string     `json:"invoked,omitempty"`
	Skipped      int          `json:"skipped"`
	FailedModule string       `json:"failed_module,omitempty"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// LastPhase returns the most recent phase recorded, or zero.
func (s RunState) LastPhase() module.Phase {
	if len(s.Phases) == 0 {
		return 0
	}
	return s.Phases[len(s.Phases)-1].Phase
}

// PhaseReport summarises one RunPhase call.
type PhaseReport struct {
	Phase    module.Phase
	Invoked  []string
	Skipped  []string
	Duration time.Duration
}

func (r PhaseReport) record(started time.Time, err error) PhaseRecord {
	rec := PhaseRecord{
		Phase:      r.Phase,
		Invoked:    cloneStrings(r.Invoked),
		Skipped:    len(r.Skipped),
		StartedAt:  started,
		FinishedAt: started.Add(r.Duration),
	}
	if err != nil {
		rec.Error = err.Error()
		var pe *PhaseExecutionError
		if errors.As(err, &pe) {
			rec.FailedModule = pe.ModuleID
		}
	}
	return rec
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
