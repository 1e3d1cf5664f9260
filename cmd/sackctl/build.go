package main

import (
	"context"
	"fmt"

	"github.com/okian/sackline/internal/adapters/export"
	"github.com/okian/sackline/internal/adapters/ingest"
	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/pipeline"
	"github.com/okian/sackline/pkg/logger"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var dataDir, weeks, out string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the per-defender dataset and export it to CSV or Parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := assemble(cmd.Context(), dataDir, weeks)
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, rows); err != nil {
				return err
			}
			logger.Named("sackctl").Info(cmd.Context(), "dataset written", logger.String("path", out), logger.Int("rows", len(rows)))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding weekN.csv, players.csv, plays.csv and pffScoutingData.csv")
	cmd.Flags().StringVar(&weeks, "weeks", defaultWeeks, "Tracking weeks, e.g. 1-8 or 1,3,5")
	cmd.Flags().StringVar(&out, "out", "", "Output file; .csv or .parquet")
	_ = cmd.MarkFlagRequired("data-dir")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// assemble loads dataDir and joins it into feature rows.
func assemble(ctx context.Context, dataDir, weeks string) ([]model.DefenderFeatureRow, error) {
	ws, err := ingest.ParseWeeks(weeks)
	if err != nil {
		return nil, err
	}
	ds, err := ingest.LoadDir(ctx, dataDir, ws)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.NewAssembler().Assemble(ctx, ds)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("no rows assembled from %s (%d dropped)", dataDir, res.Drops.Total())
	}
	return res.Rows, nil
}
