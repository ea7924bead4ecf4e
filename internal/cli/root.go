package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Each call returns a fresh tree so
// flags never leak between runs.
func newRootCmd(version string) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "taskminder",
		Short: "Personal interval task reminder",
		Long: `taskminder keeps a small list of hourly, daily and weekly tasks and
reminds you when one is due.

Tasks live in a JSON file under the platform config directory (or in SQLite,
see storage.backend). Several taskminder processes can share the same file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TASKMINDER_CONFIG"), "Path to config.yaml")

	opener := func() (*app, error) { return newApp(configPath) }

	rootCmd.AddCommand(newListCmd(opener))
	rootCmd.AddCommand(newAddCmd(opener))
	rootCmd.AddCommand(newToggleCmd(opener))
	rootCmd.AddCommand(newRemoveCmd(opener))
	rootCmd.AddCommand(newClearCmd(opener))
	rootCmd.AddCommand(newCheckCmd(opener))
	rootCmd.AddCommand(newWatchCmd(opener))
	rootCmd.AddCommand(newExportCmd(opener))
	rootCmd.AddCommand(newPathCmd(opener))

	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd := newRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
