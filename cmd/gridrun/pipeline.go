package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kingrea/gridrun/internal/config"
	"github.com/kingrea/gridrun/internal/layout"
	"github.com/kingrea/gridrun/internal/logging"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/orchestrator"
	"github.com/kingrea/gridrun/internal/store/sqlite"
	"github.com/kingrea/gridrun/internal/tabular"
	"github.com/kingrea/gridrun/internal/tui"
)

var (
	setupPhases  = []module.Phase{module.ReadFromStore, module.WriteDerivedInputs, module.ValidateInputs}
	importPhases = []module.Phase{module.ImportResults, module.PostProcessResults}
)

// pipelineOptions are the flags shared by setup, run and import.
type pipelineOptions struct {
	tui         bool
	skipUnbound bool
}

func (p *pipelineOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.tui, "tui", false, "show live progress in a terminal UI")
	cmd.Flags().BoolVar(&p.skipUnbound, "skip-unbound", false, "drop modules without a built-in implementation instead of failing")
}

func newSetupCommand(opts *rootOptions) *cobra.Command {
	p := &pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "setup [scenario-dir]",
		Short: "Write and validate input tables from the scenario database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, p, scenarioArg(args), "setup", func(*session) ([]module.Phase, error) {
				return setupPhases, nil
			})
		},
	}
	p.bind(cmd)
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	p := &pipelineOptions{}
	var phases []string
	cmd := &cobra.Command{
		Use:   "run [scenario-dir]",
		Short: "Build, load and export every run target of a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, p, scenarioArg(args), "run", func(s *session) ([]module.Phase, error) {
				names := s.cfg.Scenario.Phases
				if cmd.Flags().Changed("phases") {
					names = phases
				}
				if len(names) == 0 {
					return []module.Phase{module.AddStructure, module.LoadData, module.ExportResults}, nil
				}
				return module.ParsePhases(names)
			})
		},
	}
	p.bind(cmd)
	cmd.Flags().StringSliceVar(&phases, "phases", nil, "phases to run, in order (default: gridrun.yaml phases)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	p := &pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "import [scenario-dir]",
		Short: "Import exported results into the scenario database and post-process them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, p, scenarioArg(args), "import", func(*session) ([]module.Phase, error) {
				return importPhases, nil
			})
		},
	}
	p.bind(cmd)
	return cmd
}

// targetResult is the outcome of one run target.
type targetResult struct {
	Target  layout.Target
	RunID   string
	Reports []orchestrator.PhaseReport
}

func runPipeline(cmd *cobra.Command, opts *rootOptions, p *pipelineOptions, dir, name string, phasesFor func(*session) ([]module.Phase, error)) error {
	s, err := openSession(opts, dir)
	if err != nil {
		return err
	}
	phases, err := phasesFor(s)
	if err != nil {
		return err
	}
	logger, err := logging.New(s.cfg.LogsDir(), s.logOptions())
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("pipeline started", "pipeline", name, "scenario", s.cfg.ScenarioDir, "phases", phaseNames(phases))

	var results []targetResult
	work := func(ctx context.Context, r *tui.Reporter) error {
		var err error
		results, err = s.runTargets(ctx, phases, p.skipUnbound, logger.Logger, r)
		return err
	}
	if p.tui {
		finished := make(chan struct{})
		err = tui.Run(cmd.Context(), "gridrun "+name, func(ctx context.Context, r *tui.Reporter) error {
			defer close(finished)
			return work(ctx, r)
		})
		// Quitting the view cancels the work; wait for it to unwind.
		<-finished
	} else {
		err = work(cmd.Context(), nil)
	}
	printResults(cmd.OutOrStdout(), results)
	if err != nil {
		logger.Error("pipeline failed", "pipeline", name, "err", err)
		return err
	}
	logger.Info("pipeline finished", "pipeline", name, "targets", len(results))
	return nil
}

// runTargets runs phases for every target of the scenario, each with a fresh
// context and fresh units. It stops at the first failure.
func (s *session) runTargets(ctx context.Context, phases []module.Phase, skipUnbound bool, logger *log.Logger, r *tui.Reporter) ([]targetResult, error) {
	res, err := s.resolve(logger)
	if err != nil {
		return nil, err
	}
	targets, err := layout.Targets(layout.FS{}, s.cfg.ScenarioDir)
	if err != nil {
		return nil, err
	}
	var store *sqlite.Store
	if needsStore(phases) {
		store, err = sqlite.Open(ctx, s.cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	results := make([]targetResult, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r != nil {
			r.Target(target.Label())
		}
		units, err := s.units(res.IDs, skipUnbound, logger)
		if err != nil {
			return results, err
		}
		targetLogger := logger.With("target", target.Label())
		mc := module.NewContext(s.cfg.ScenarioDir, target, res.Features).WithLogger(targetLogger)
		engineOpts := []orchestrator.Option{
			orchestrator.WithLogger(targetLogger),
			orchestrator.WithStateStore(orchestrator.NewRepository(orchestrator.StatePath(s.cfg.LogsDir(), target))),
		}
		if r != nil {
			engineOpts = append(engineOpts, orchestrator.WithObserver(r))
		}
		run, err := orchestrator.New(engineOpts...).Start(units, mc)
		if err != nil {
			return results, err
		}
		result := targetResult{Target: target, RunID: mc.RunID}
		for _, phase := range phases {
			report, err := run.Phase(ctx, phase, handlesFor(ctx, phase, target, store, mc.RunID))
			if err != nil {
				results = append(results, result)
				return results, fmt.Errorf("%s: %w", target.Label(), err)
			}
			result.Reports = append(result.Reports, report)
		}
		if err := run.Finish(); err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// handlesFor wires the phase to target's inputs/ and results/ directories and
// to the scenario database.
func handlesFor(ctx context.Context, phase module.Phase, target layout.Target, store *sqlite.Store, runID string) orchestrator.Handles {
	inputs := tabular.Dir{Path: filepath.Join(target.Dir, config.InputsDirName)}
	results := tabular.Dir{Path: filepath.Join(target.Dir, config.ResultsDirName)}
	switch phase {
	case module.LoadData, module.ValidateInputs:
		return orchestrator.Handles{Source: inputs}
	case module.WriteDerivedInputs:
		return orchestrator.Handles{Sink: inputs}
	case module.ExportResults:
		return orchestrator.Handles{Sink: results}
	}
	if store == nil {
		return orchestrator.Handles{}
	}
	handle := store.Handle(ctx, runID, storeTarget(target))
	switch phase {
	case module.ReadFromStore:
		return orchestrator.Handles{Source: handle}
	case module.ImportResults:
		return orchestrator.Handles{Results: results, Store: handle}
	case module.PostProcessResults:
		return orchestrator.Handles{Store: handle}
	}
	return orchestrator.Handles{}
}

// storeTarget is the database row scope of target. The scenario-wide target
// uses the empty scope every target falls back to.
func storeTarget(target layout.Target) string {
	if target.Subproblem == "" {
		return ""
	}
	return target.Label()
}

func needsStore(phases []module.Phase) bool {
	for _, phase := range phases {
		switch phase {
		case module.ReadFromStore, module.ImportResults, module.PostProcessResults:
			return true
		}
	}
	return false
}

func phaseNames(phases []module.Phase) string {
	names := make([]string, len(phases))
	for i, phase := range phases {
		names[i] = phase.String()
	}
	return strings.Join(names, ",")
}

func printResults(w io.Writer, results []targetResult) {
	for _, result := range results {
		fmt.Fprintln(w, TitleStyle.Render(result.Target.Label())+SubtitleStyle.Render(" run "+result.RunID))
		for _, report := range result.Reports {
			line := fmt.Sprintf("  %s %-22s %d module(s)", SuccessStyle.Render("✓"), report.Phase, len(report.Invoked))
			if n := len(report.Skipped); n > 0 {
				line += SubtitleStyle.Render(fmt.Sprintf(", %d without this phase", n))
			}
			fmt.Fprintln(w, line)
		}
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [scenario-dir]",
		Short: "Show the last persisted run state of every run target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, scenarioArg(args))
			if err != nil {
				return err
			}
			targets, err := layout.Targets(layout.FS{}, s.cfg.ScenarioDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, target := range targets {
				state, err := orchestrator.NewRepository(orchestrator.StatePath(s.cfg.LogsDir(), target)).Load()
				if errors.Is(err, orchestrator.ErrStateNotFound) {
					fmt.Fprintln(out, TitleStyle.Render(target.Label())+SubtitleStyle.Render(" never run"))
					continue
				}
				if err != nil {
					return err
				}
				printState(out, target, state)
			}
			return nil
		},
	}
}

func printState(w io.Writer, target layout.Target, state orchestrator.RunState) {
	status := string(state.Status)
	switch state.Status {
	case orchestrator.RunStatusComplete:
		status = SuccessStyle.Render(status)
	case orchestrator.RunStatusAborted:
		status = ErrorStyle.Render(status)
	default:
		status = WarningStyle.Render(status)
	}
	fmt.Fprintf(w, "%s %s %s\n", TitleStyle.Render(target.Label()), status,
		SubtitleStyle.Render(fmt.Sprintf("run %s, %d modules, updated %s", state.RunID, len(state.Modules), state.UpdatedAt.Format("2006-01-02 15:04:05"))))
	for _, rec := range state.Phases {
		mark := SuccessStyle.Render("✓")
		if rec.Error != "" {
			mark = ErrorStyle.Render("✗")
		}
		line := fmt.Sprintf("  %s %-22s %d module(s)", mark, rec.Phase, len(rec.Invoked))
		if rec.FailedModule != "" {
			line += " " + ErrorStyle.Render("failed in "+rec.FailedModule)
		}
		fmt.Fprintln(w, line)
	}
	if state.Error != "" {
		fmt.Fprintln(w, "  "+ErrorStyle.Render(state.Error))
	}
}
