package orchestrator

import (
	"context"
	"fmt"

	"github.com/kingrea/gridrun/internal/module"
)

// Run is one orchestration run over a fixed unit list and context. Phases
// only move forward through the lifecycle vocabulary: a phase may be skipped
// but never repeated or revisited. A failed phase closes the run.
type Run struct {
	engine *Engine
	units  []*module.Unit
	mc     *module.ModuleContext
	state  RunState
	last   module.Phase
	closed error
}

// Start opens a run and persists its initial snapshot.
func (e *Engine) Start(units []*module.Unit, mc *module.ModuleContext) (*Run, error) {
	if mc == nil {
		return nil, fmt.Errorf("orchestrator: module context is required")
	}
	ids := make([]string, 0, len(units))
	seen := make(map[string]struct{}, len(units))
	for i, unit := range units {
		if unit == nil {
			return nil, fmt.Errorf("orchestrator: unit %d is nil", i)
		}
		if _, dup := seen[unit.ID()]; dup {
			return nil, fmt.Errorf("orchestrator: module %s loaded twice", unit.ID())
		}
		seen[unit.ID()] = struct{}{}
		ids = append(ids, unit.ID())
	}
	now := e.now()
	r := &Run{
		engine: e,
		units:  append([]*module.Unit(nil), units...),
		mc:     mc,
		state: RunState{
			RunID:       mc.RunID,
			ScenarioDir: mc.ScenarioDir,
			Target:      mc.Target.Label(),
			Features:    mc.Features.Sorted(),
			Modules:     ids,
			Status:      RunStatusRunning,
			StartedAt:   now,
			UpdatedAt:   now,
		},
	}
	if err := r.save(); err != nil {
		return nil, err
	}
	e.logger.Info("run started", "run_id", mc.RunID, "target", r.state.Target, "modules", len(ids))
	return r, nil
}

// Context returns the run's shared context.
func (r *Run) Context() *module.ModuleContext {
	return r.mc
}

// State returns a copy of the current snapshot.
func (r *Run) State() RunState {
	state := r.state
	state.Phases = append([]PhaseRecord(nil), r.state.Phases...)
	return state
}

// Phase runs phase across the run's units.
func (r *Run) Phase(ctx context.Context, phase module.Phase, h Handles) (PhaseReport, error) {
	if r.closed != nil {
		return PhaseReport{Phase: phase}, r.closed
	}
	if !phase.Valid() {
		return PhaseReport{Phase: phase}, fmt.Errorf("orchestrator: unknown phase %s", phase)
	}
	if phase <= r.last {
		return PhaseReport{Phase: phase}, fmt.Errorf("%w: %s requested after %s", ErrPhaseOrder, phase, r.last)
	}
	started := r.engine.now()
	report, err := r.engine.RunPhase(ctx, phase, r.units, r.mc, h)
	r.last = phase
	r.state.Phases = append(r.state.Phases, report.record(started, err))
	if err != nil {
		r.closed = fmt.Errorf("%w: %s failed: %v", ErrRunAborted, phase, err)
		r.state.Status = RunStatusAborted
		r.state.Error = err.Error()
		r.engine.emit(Event{Kind: EventRunFinished, Phase: phase, Err: err})
		if saveErr := r.save(); saveErr != nil {
			r.engine.logger.Error("save run state", "err", saveErr)
		}
		return report, err
	}
	if err := r.save(); err != nil {
		return report, err
	}
	return report, nil
}

// Phases runs each phase in turn, stopping at the first error.
func (r *Run) Phases(ctx context.Context, phases []module.Phase, h Handles) ([]PhaseReport, error) {
	reports := make([]PhaseReport, 0, len(phases))
	for _, phase := range phases {
		report, err := r.Phase(ctx, phase, h)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Finish marks the run complete. Further phases return ErrRunFinished.
func (r *Run) Finish() error {
	if r.closed != nil {
		return r.closed
	}
	r.closed = ErrRunFinished
	r.state.Status = RunStatusComplete
	r.engine.emit(Event{Kind: EventRunFinished, Phase: r.last})
	r.engine.logger.Info("run finished", "run_id", r.state.RunID, "phases", len(r.state.Phases))
	return r.save()
}

func (r *Run) save() error {
	r.state.UpdatedAt = r.engine.now()
	if r.engine.store == nil {
		return nil
	}
	if err := r.engine.store.Save(r.State()); err != nil {
		return fmt.Errorf("orchestrator: save run state: %w", err)
	}
	return nil
}
