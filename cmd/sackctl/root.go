package main

import (
	"fmt"

	"github.com/okian/sackline/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultWeeks = "1-8"

// newRootCmd builds the command tree. Commands are constructed per call so
// tests get fresh flag state.
func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "sackctl",
		Short:        "Sack probability datasets, models and scenarios",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.SetLevelString(logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log verbosity: debug, info, warn, error")

	root.AddCommand(
		newBuildCmd(),
		newTrainCmd(),
		newPredictCmd(),
		newSchemaCmd(),
		newLoadtestCmd(),
	)
	return root
}
