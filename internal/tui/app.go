// internal/tui/app.go
//
// Live progress view for an orchestration run. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the phases seen so far and the unit currently running
// 2. Update: folds orchestrator events into that state
// 3. View: renders the phase list, a spinner and a progress bar
//
// The run itself executes on one background goroutine. The engine's
// observer forwards every event over a channel that the program drains one
// message at a time, so the view never touches run state directly.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/orchestrator"
)

const maxFailures = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	targetStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1)
)

// Work is the orchestration the view observes. It must report progress
// through the reporter and return when the run ends.
type Work func(ctx context.Context, r *Reporter) error

// Reporter forwards run progress to the program. It implements
// orchestrator.Observer.
type Reporter struct {
	ch   chan<- tea.Msg
	done <-chan struct{}
}

// Observe implements orchestrator.Observer.
func (r *Reporter) Observe(ev orchestrator.Event) {
	r.send(eventMsg{event: ev})
}

// Target announces that the following phases run for label.
func (r *Reporter) Target(label string) {
	r.send(targetMsg{label: label})
}

func (r *Reporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.done:
	}
}

type eventMsg struct {
	event orchestrator.Event
}

type targetMsg struct {
	label string
}

type workDoneMsg struct {
	err error
}

type phaseStatus int

const (
	phaseRunning phaseStatus = iota
	phaseDone
	phaseFailed
)

type phaseRow struct {
	target   string
	phase    module.Phase
	status   phaseStatus
	total    int
	finished int
	duration time.Duration
}

// Model is the bubbletea model of the progress view.
type Model struct {
	title    string
	msgs     <-chan tea.Msg
	cancel   context.CancelFunc
	spinner  spinner.Model
	progress progress.Model

	target   string
	rows     []phaseRow
	unit     string
	started  map[string]time.Time
	failures []string
	done     bool
	err      error
	width    int
}

// NewModel builds a view that drains msgs. cancel, when set, is called if
// the user quits before the run ends.
func NewModel(title string, msgs <-chan tea.Msg, cancel context.CancelFunc) *Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = runningStyle
	return &Model{
		title:    title,
		msgs:     msgs,
		cancel:   cancel,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		started:  map[string]time.Time{},
	}
}

// Run executes work on a background goroutine and shows its progress until
// it finishes. The returned error is the work's error, or the program's if
// the terminal failed.
func Run(ctx context.Context, title string, work Work, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan tea.Msg)
	done := make(chan struct{})
	reporter := &Reporter{ch: msgs, done: done}
	model := NewModel(title, msgs, cancel)

	go func() {
		err := work(ctx, reporter)
		reporter.send(workDoneMsg{err: err})
	}()

	final, err := tea.NewProgram(model, opts...).Run()
	close(done)
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(*Model); ok {
		if m.err != nil {
			return m.err
		}
		if !m.done {
			return context.Canceled
		}
	}
	return nil
}

// Err returns the run's error once it has finished.
func (m *Model) Err() error {
	return m.err
}

// Init starts the spinner and the event pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForMsg())
}

func (m *Model) waitForMsg() tea.Cmd {
	if m.msgs == nil {
		return nil
	}
	return func() tea.Msg {
		return <-m.msgs
	}
}

// Update folds one message into the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case targetMsg:
		m.target = msg.label
		return m, m.waitForMsg()

	case eventMsg:
		m.apply(msg.event)
		return m, m.waitForMsg()

	case workDoneMsg:
		m.done = true
		m.err = msg.err
		m.unit = ""
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev orchestrator.Event) {
	switch ev.Kind {
	case orchestrator.EventPhaseStarted:
		m.rows = append(m.rows, phaseRow{target: m.target, phase: ev.Phase, status: phaseRunning, total: ev.Total})
		m.started[m.rowKey(ev.Phase)] = time.Now()
	case orchestrator.EventUnitStarted:
		m.unit = ev.ModuleID
	case orchestrator.EventUnitFinished:
		if row := m.current(ev.Phase); row != nil {
			row.finished = ev.Index + 1
		}
		if ev.Err != nil {
			m.recordFailure(fmt.Sprintf("%s %s: %v", ev.Phase, ev.ModuleID, ev.Err))
		}
	case orchestrator.EventPhaseFinished:
		m.unit = ""
		row := m.current(ev.Phase)
		if row == nil {
			return
		}
		if started, ok := m.started[m.rowKey(ev.Phase)]; ok {
			row.duration = time.Since(started)
		}
		if ev.Err != nil {
			row.status = phaseFailed
			var execErr *orchestrator.PhaseExecutionError
			if !errors.As(ev.Err, &execErr) {
				m.recordFailure(fmt.Sprintf("%s: %v", ev.Phase, ev.Err))
			}
			return
		}
		row.status = phaseDone
		row.finished = row.total
	case orchestrator.EventRunFinished:
		m.unit = ""
	}
}

func (m *Model) rowKey(phase module.Phase) string {
	return m.target + "/" + phase.String()
}

func (m *Model) current(phase module.Phase) *phaseRow {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].phase == phase && m.rows[i].target == m.target {
			return &m.rows[i]
		}
	}
	return nil
}

func (m *Model) recordFailure(line string) {
	m.failures = append(m.failures, line)
	if len(m.failures) > maxFailures {
		m.failures = m.failures[len(m.failures)-maxFailures:]
	}
}

// View renders the model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("⬡ " + m.title))
	b.WriteString("\n")

	lastTarget := "\x00"
	for _, row := range m.rows {
		if row.target != lastTarget && row.target != "" {
			b.WriteString(targetStyle.Render(row.target))
			b.WriteString("\n")
		}
		lastTarget = row.target
		b.WriteString("  ")
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	if !m.done {
		if row := m.current(m.activePhase()); row != nil && row.status == phaseRunning {
			percent := 0.0
			if row.total > 0 {
				percent = float64(row.finished) / float64(row.total)
			}
			b.WriteString("\n")
			b.WriteString(m.progress.ViewAs(percent))
			b.WriteString("\n")
		}
		if m.unit != "" {
			b.WriteString(m.spinner.View())
			b.WriteString(" ")
			b.WriteString(detailStyle.Render(m.unit))
			b.WriteString("\n")
		}
	}

	if len(m.failures) > 0 {
		b.WriteString("\n")
		for _, line := range m.failures {
			b.WriteString(failedStyle.Render("✗ " + line))
			b.WriteString("\n")
		}
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString("\n")
		b.WriteString(failedStyle.Render("run failed: " + m.err.Error()))
	case m.done:
		b.WriteString("\n")
		b.WriteString(doneStyle.Render("run complete"))
	default:
		b.WriteString(helpStyle.Render("q: cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) activePhase() module.Phase {
	if len(m.rows) == 0 {
		return 0
	}
	return m.rows[len(m.rows)-1].phase
}

func (m *Model) renderRow(row phaseRow) string {
	label := fmt.Sprintf("%-22s", row.phase)
	counts := fmt.Sprintf("%d/%d", row.finished, row.total)
	switch {
	case row.status == phaseFailed:
		return failedStyle.Render("✗ "+label) + " " + detailStyle.Render(counts)
	case row.status == phaseDone && row.total == 0:
		return skippedStyle.Render("- " + label + " no capable modules")
	case row.status == phaseDone:
		return doneStyle.Render("✓ "+label) + " " + detailStyle.Render(counts+" "+humanizeDuration(row.duration))
	default:
		return runningStyle.Render("• "+label) + " " + detailStyle.Render(counts)
	}
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
