package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/sackline/internal/loadtest"
	"github.com/spf13/cobra"
)

func newLoadtestCmd() *cobra.Command {
	cfg := &loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Post generated scenarios to a running server and verify the responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := loadtest.Run(cmd.Context(), cfg)
			if stats != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(),
					"submitted %d  ok %d  rejected %d  backpressure %d  failed %d  violations %d  in %s\n",
					stats.Submitted, stats.Successful, stats.Rejected, stats.Backpressed,
					stats.Failed, stats.Violations, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Requests, "requests", 1000, "Number of scenarios to generate and score")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Scenario generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "Write generated scenarios to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every failed request")
	return cmd
}
