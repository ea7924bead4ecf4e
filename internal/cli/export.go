package cli

import (
	"fmt"
	"time"

	"taskminder/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export tasks to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}

			path, err := export.ToExcel(tasks, args[0], time.Now())
			if err != nil {
				return err
			}
			a.logger.Info().Str("file_path", path).Int("tasks", len(tasks)).Msg("Excel file created")
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(tasks), path)
			return nil
		},
	}
}

func newPathCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where tasks are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.storePath == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "(%s)\n", a.cfg.Storage.Backend)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.storePath)
			return nil
		},
	}
}
