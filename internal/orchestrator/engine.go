package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kingrea/gridrun/internal/logging"
	"github.com/kingrea/gridrun/internal/module"
)

const tracerName = "gridrun.orchestrator"

// Engine drives loaded units through lifecycle phases. Units run one at a
// time on the calling goroutine, in the order they were loaded.
type Engine struct {
	logger   *log.Logger
	tracer   trace.Tracer
	store    StateStore
	observer Observer
	clock    func() time.Time
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracerProvider records spans through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithStateStore persists a run snapshot after every phase.
func WithStateStore(store StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithObserver receives progress events.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New builds an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.Discard(),
		tracer: otel.Tracer(tracerName),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPhase invokes phase on every capable unit in order. Units without the
// capability are skipped. A missing handle is reported before any unit runs;
// the first failing unit stops the phase with a *PhaseExecutionError.
func (e *Engine) RunPhase(ctx context.Context, phase module.Phase, units []*module.Unit, mc *module.ModuleContext, h Handles) (PhaseReport, error) {
	report := PhaseReport{Phase: phase}
	if !phase.Valid() {
		return report, fmt.Errorf("orchestrator: unknown phase %s", phase)
	}
	if mc == nil {
		return report, fmt.Errorf("orchestrator: module context is required")
	}
	h = h.withDefaults(mc)

	var capable []*module.Unit
	for _, unit := range units {
		if unit.Has(phase) {
			capable = append(capable, unit)
		} else if unit != nil {
			report.Skipped = append(report.Skipped, unit.ID())
		}
	}
	if len(capable) > 0 {
		if err := h.check(phase); err != nil {
			return report, err
		}
	}

	ctx, span := e.tracer.Start(ctx, "orchestrator.phase",
		trace.WithAttributes(
			attribute.String("gridrun.phase", phase.String()),
			attribute.String("gridrun.run_id", mc.RunID),
			attribute.Int("gridrun.capable_units", len(capable)),
		),
	)
	defer span.End()

	started := e.clock()
	e.logger.Info("phase started", "phase", phase, "capable", len(capable), "skipped", len(report.Skipped))
	e.emit(Event{Kind: EventPhaseStarted, Phase: phase, Total: len(capable)})

	for i, unit := range capable {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			report.Duration = e.clock().Sub(started)
			e.emit(Event{Kind: EventPhaseFinished, Phase: phase, Total: len(capable), Err: err})
			return report, fmt.Errorf("orchestrator: %s: %w", phase, err)
		}
		if err := e.runUnit(ctx, phase, unit, i, len(capable), mc, h); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			report.Duration = e.clock().Sub(started)
			e.logger.Error("phase failed", "phase", phase, "module", unit.ID(), "err", err)
			e.emit(Event{Kind: EventPhaseFinished, Phase: phase, ModuleID: unit.ID(), Total: len(capable), Err: err})
			return report, err
		}
		report.Invoked = append(report.Invoked, unit.ID())
	}

	report.Duration = e.clock().Sub(started)
	e.logger.Info("phase finished", "phase", phase, "invoked", len(report.Invoked), "duration", report.Duration)
	e.emit(Event{Kind: EventPhaseFinished, Phase: phase, Total: len(capable)})
	return report, nil
}

func (e *Engine) runUnit(ctx context.Context, phase module.Phase, unit *module.Unit, index, total int, mc *module.ModuleContext, h Handles) error {
	_, span := e.tracer.Start(ctx, "orchestrator.unit",
		trace.WithAttributes(
			attribute.String("gridrun.phase", phase.String()),
			attribute.String("gridrun.module", unit.ID()),
		),
	)
	defer span.End()

	e.logger.Debug("invoking unit", "phase", phase, "module", unit.ID())
	e.emit(Event{Kind: EventUnitStarted, Phase: phase, ModuleID: unit.ID(), Index: index, Total: total})
	start := e.clock()
	err := invoke(phase, unit, mc, h)
	elapsed := e.clock().Sub(start)
	e.emit(Event{Kind: EventUnitFinished, Phase: phase, ModuleID: unit.ID(), Index: index, Total: total, Duration: elapsed, Err: err})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PhaseExecutionError{Phase: phase, ModuleID: unit.ID(), Err: err}
	}
	return nil
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer.Observe(ev)
	}
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}
