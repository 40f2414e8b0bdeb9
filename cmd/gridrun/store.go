package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/gridrun/internal/store/sqlite"
	"github.com/kingrea/gridrun/internal/tabular"
)

func newStoreCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the scenario database",
	}

	var dir, target string
	load := &cobra.Command{
		Use:   "load <table.tab>...",
		Short: "Load tab-separated tables into the scenario database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, dir)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), s.cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()
			for _, path := range args {
				t, err := readTableFile(path)
				if err != nil {
					return err
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if err := store.PutTable(cmd.Context(), target, name, t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", SuccessStyle.Render("✓"), IDStyle.Render(name), SubtitleStyle.Render(fmt.Sprintf("%d rows", t.Len())))
			}
			return nil
		},
	}
	load.Flags().StringVar(&target, "target", "", `row scope, e.g. "subproblem 1" (default: scenario-wide)`)

	tables := &cobra.Command{
		Use:   "tables",
		Short: "List the data tables in the scenario database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, dir)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), s.cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()
			names, err := store.Tables(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "log [run-id]",
		Short: "Show which result tables each run imported",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, dir)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), s.cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			records, err := store.ImportLog(cmd.Context(), runID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				scope := rec.Target
				if scope == "" {
					scope = "scenario"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-24s %6d rows  %s\n",
					rec.ImportedAt.Format("2006-01-02 15:04:05"), rec.RunID, rec.Table, rec.Rows, SubtitleStyle.Render(scope))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&dir, "scenario", "s", ".", "scenario directory")
	cmd.AddCommand(load, tables, history)
	return cmd
}

func readTableFile(path string) (tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := tabular.Read(f)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
