package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags.
var Version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	catalogPath string
	features    []string
	multiStage  bool
	logLevel    string
	verbose     bool

	// Set when the flag was given explicitly.
	featuresSet   bool
	multiStageSet bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "gridrun",
		Short: "Resolve and run power-system model modules",
		Long: TitleStyle.Render("gridrun") + SubtitleStyle.Render(" - module resolution and lifecycle orchestration") + `

gridrun reads a scenario's requested features, resolves the ordered list of
modules the scenario activates, and drives them through the lifecycle
phases: build structure, load data, export and import results.

` + SubtitleStyle.Render("Examples:") + `
  gridrun init ./scenario              Create a scenario directory
  gridrun modules ./scenario           List the modules the scenario activates
  gridrun setup ./scenario             Write inputs from the scenario database
  gridrun run ./scenario --tui         Run every subproblem and stage
  gridrun import ./scenario            Import results into the database`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			opts.featuresSet = flags.Changed("features")
			opts.multiStageSet = flags.Changed("multi-stage")
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.catalogPath, "catalog", "", "module catalog YAML (default: scenario setting, then the built-in catalog)")
	flags.StringSliceVar(&opts.features, "features", nil, "requested features, overriding gridrun.yaml and features.csv")
	flags.BoolVar(&opts.multiStage, "multi-stage", false, "force multi-stage handling on or off instead of detecting it")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "also write logs to stderr")

	root.AddCommand(
		newInitCommand(),
		newModulesCommand(opts),
		newFeaturesCommand(opts),
		newCatalogCommand(),
		newSetupCommand(opts),
		newRunCommand(opts),
		newImportCommand(opts),
		newStatusCommand(opts),
		newStoreCommand(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, newRootCommand(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+err.Error())
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// scenarioArg returns the scenario directory argument, defaulting to ".".
func scenarioArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}
