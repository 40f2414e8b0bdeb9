package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/gridrun/internal/config"
	"github.com/kingrea/gridrun/internal/features"
)

func newInitCommand() *cobra.Command {
	var requested []string
	cmd := &cobra.Command{
		Use:   "init <scenario-dir>",
		Short: "Create a scenario directory with a default gridrun.yaml and features.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := config.InitScenarioDir(dir); err != nil {
				return err
			}
			path := filepath.Join(dir, features.FileName)
			_, err := os.Stat(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				if err := features.WriteFile(dir, requested); err != nil {
					return err
				}
			case err != nil:
				return fmt.Errorf("stat %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+"initialized scenario "+dir)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&requested, "with", nil, "features to write into a new features.csv")
	return cmd
}
