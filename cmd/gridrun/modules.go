package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/gridrun/internal/catalog"
)

func newModulesCommand(opts *rootOptions) *cobra.Command {
	var unboundOnly bool
	cmd := &cobra.Command{
		Use:   "modules [scenario-dir]",
		Short: "List the modules a scenario activates, in load order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, scenarioArg(args))
			if err != nil {
				return err
			}
			res, err := s.resolve(s.consoleLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			for _, f := range res.Inert {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: ")+"feature "+f+" is not used by any catalog rule")
			}
			missing := map[string]struct{}{}
			for _, id := range s.registry.Missing(res.IDs) {
				missing[id] = struct{}{}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("Modules")+SubtitleStyle.Render(fmt.Sprintf(" (%d of %d, multi-stage %t)", len(res.IDs), len(s.catalog.AllModules()), res.MultiStage)))
			fmt.Fprintln(out, SubtitleStyle.Render("features: "+featureList(res.Features.Sorted())))
			for i, id := range res.IDs {
				_, unbound := missing[id]
				if unboundOnly && !unbound {
					continue
				}
				line := fmt.Sprintf("%4d  %s", i+1, IDStyle.Render(id))
				if unbound {
					line += " " + WarningStyle.Render("(unbound)")
				}
				fmt.Fprintln(out, line)
			}
			if len(missing) > 0 {
				fmt.Fprintln(out, WarningStyle.Render(fmt.Sprintf("%d module(s) have no built-in implementation", len(missing))))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unboundOnly, "unbound", false, "only list modules without a built-in implementation")
	return cmd
}

func newFeaturesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List the features the catalog's rules mention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, feature := range cat.Features() {
				fmt.Fprintln(out, feature)
			}
			return nil
		},
	}
}

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and check module catalogs",
	}

	var strict bool
	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file and report overlapping exclusion rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			overlaps := cat.Overlaps()
			for _, o := range overlaps {
				fmt.Fprintln(out, WarningStyle.Render("warning: ")+IDStyle.Render(o.ModuleID)+" is excluded by "+strings.Join(o.Rules, ", "))
			}
			if len(overlaps) > 0 && strict {
				return &ExitError{Code: 2, Err: fmt.Errorf("%s: %d module(s) excluded by more than one rule", args[0], len(overlaps))}
			}
			fmt.Fprintln(out, SuccessStyle.Render("✓ ")+fmt.Sprintf("%s: %d modules, %d features", args[0], len(cat.AllModules()), len(cat.Features())))
			return nil
		},
	}
	validate.Flags().BoolVar(&strict, "strict", false, "fail when a module is excluded by more than one rule")

	show := &cobra.Command{
		Use:   "show [file]",
		Short: "Print a catalog as YAML (the built-in catalog by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := loadCatalog(path)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cat)
			if err != nil {
				return fmt.Errorf("catalog: encode yaml: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}

func featureList(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	return strings.Join(labels, ", ")
}
