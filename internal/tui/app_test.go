package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/orchestrator"
)

func TestUpdateTracksPhasesAndUnits(t *testing.T) {
	m := NewModel("gridrun", nil, nil)
	feed(t, m,
		targetMsg{label: "subproblem 1"},
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventPhaseStarted, Phase: module.AddStructure, Total: 2}},
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventUnitStarted, Phase: module.AddStructure, ModuleID: "alpha", Total: 2}},
	)
	if m.unit != "alpha" {
		t.Fatalf("expected alpha running, got %q", m.unit)
	}
	if view := m.View(); !strings.Contains(view, "subproblem 1") || !strings.Contains(view, "alpha") {
		t.Fatalf("view missing target or unit:\n%s", view)
	}

	feed(t, m,
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventUnitFinished, Phase: module.AddStructure, ModuleID: "alpha", Index: 0, Total: 2}},
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventPhaseFinished, Phase: module.AddStructure, Total: 2}},
	)
	if len(m.rows) != 1 || m.rows[0].status != phaseDone || m.rows[0].finished != 2 {
		t.Fatalf("unexpected rows %+v", m.rows)
	}
	if m.unit != "" {
		t.Fatalf("unit should clear after the phase, got %q", m.unit)
	}
}

func TestUpdateRecordsFailuresOnce(t *testing.T) {
	m := NewModel("gridrun", nil, nil)
	cause := errors.New("bad table")
	feed(t, m,
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventPhaseStarted, Phase: module.LoadData, Total: 1}},
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventUnitFinished, Phase: module.LoadData, ModuleID: "beta", Total: 1, Err: cause}},
		eventMsg{event: orchestrator.Event{Kind: orchestrator.EventPhaseFinished, Phase: module.LoadData, ModuleID: "beta", Total: 1,
			Err: &orchestrator.PhaseExecutionError{Phase: module.LoadData, ModuleID: "beta", Err: cause}}},
	)
	if len(m.failures) != 1 || !strings.Contains(m.failures[0], "beta: bad table") {
		t.Fatalf("unexpected failures %v", m.failures)
	}
	if m.rows[0].status != phaseFailed {
		t.Fatalf("expected failed phase, got %+v", m.rows[0])
	}
}

func TestWorkDoneQuits(t *testing.T) {
	m := NewModel("gridrun", nil, nil)
	_, cmd := m.Update(workDoneMsg{err: errors.New("boom")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if m.Err() == nil || !strings.Contains(m.View(), "run failed: boom") {
		t.Fatalf("expected failure in view:\n%s", m.View())
	}
}

func TestQuitCancelsRunningWork(t *testing.T) {
	canceled := false
	m := NewModel("gridrun", nil, func() { canceled = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled {
		t.Fatalf("expected cancel on quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestRunReturnsWorkError(t *testing.T) {
	want := errors.New("phase failed")
	err := Run(context.Background(), "gridrun", func(ctx context.Context, r *Reporter) error {
		r.Target("scenario")
		r.Observe(orchestrator.Event{Kind: orchestrator.EventPhaseStarted, Phase: module.AddStructure})
		r.Observe(orchestrator.Event{Kind: orchestrator.EventPhaseFinished, Phase: module.AddStructure})
		return want
	}, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())
	if !errors.Is(err, want) {
		t.Fatalf("expected work error, got %v", err)
	}
}

func feed(t *testing.T, m *Model, msgs ...tea.Msg) {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		if next != m {
			t.Fatalf("unexpected model %T", next)
		}
	}
}
