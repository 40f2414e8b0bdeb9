package orchestrator

import (
	"time"

	"github.com/kingrea/gridrun/internal/module"
)

// EventKind enumerates progress notifications.
type EventKind int

const (
	EventPhaseStarted EventKind = iota + 1
	EventUnitStarted
	EventUnitFinished
	EventPhaseFinished
	EventRunFinished
)

// Event is a progress notification. Index and Total count capable units
// within the phase.
type Event struct {
	Kind     EventKind
	Phase    module.Phase
	ModuleID string
	Index    int
	Total    int
	Duration time.Duration
	Err      error
}

// Observer receives events synchronously on the engine's goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}
