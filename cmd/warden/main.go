package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codewarden/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "codewarden - verification orchestration for generated code",
	Long: `codewarden drives generated code through a verify-and-correct loop.

Each candidate is checked concurrently by a set of governors (style,
security, syntax, architecture, plugin rule scripts). Failing candidates
are corrected through bounded, convergent regeneration until they comply
or the run terminates with a named reason.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(verbose); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "warden.yaml", "Path to configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(governorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
