package main

import (
	"fmt"
	"io"

	"github.com/okian/sackline/internal/adapters/artifactstore"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/train"
	"github.com/okian/sackline/pkg/logger"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var (
		dataDir, weeks, uri, region string
		testFraction                float64
		seed                        uint64
		params                      = train.DefaultParams()
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a sack model and store the artifact locally or on S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rows, err := assemble(ctx, dataDir, weeks)
			if err != nil {
				return err
			}
			log := logger.Named("train")
			t := train.NewTrainer(
				train.WithParams(params),
				train.WithTestFraction(testFraction),
				train.WithSeed(seed),
				train.WithLogger(log),
			)
			a, err := t.Train(ctx, rows)
			if err != nil {
				return err
			}
			store := artifactstore.New(artifactstore.WithRegion(region), artifactstore.WithLogger(log))
			if err := store.Save(ctx, uri, a); err != nil {
				return err
			}
			printEvaluation(cmd.OutOrStdout(), uri, a)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataDir, "data-dir", "", "Directory holding the input tables")
	f.StringVar(&weeks, "weeks", defaultWeeks, "Tracking weeks, e.g. 1-8 or 1,3,5")
	f.StringVar(&uri, "artifact", "", "Artifact destination: local path or s3://bucket/key")
	f.StringVar(&region, "aws-region", "us-east-1", "AWS region for s3:// destinations")
	f.Float64Var(&testFraction, "test-fraction", train.DefaultTestFraction, "Held-out fraction, stratified by outcome")
	f.Uint64Var(&seed, "seed", train.DefaultSeed, "Split seed")
	f.IntVar(&params.Trees, "trees", params.Trees, "Boosting rounds")
	f.Float64Var(&params.LearningRate, "learning-rate", params.LearningRate, "Shrinkage per tree")
	f.IntVar(&params.MaxDepth, "max-depth", params.MaxDepth, "Maximum tree depth")
	_ = cmd.MarkFlagRequired("data-dir")
	_ = cmd.MarkFlagRequired("artifact")
	return cmd
}

func printEvaluation(w io.Writer, uri string, a *artifact.Artifact) {
	ev := a.Evaluation
	_, _ = fmt.Fprintf(w, "artifact   %s\nschema     %s\ntrees      %d\n", uri, a.Version, len(a.Model.Trees))
	_, _ = fmt.Fprintf(w, "rows       train=%d test=%d prevalence=%.4f\n", ev.TrainRows, ev.TestRows, ev.Prevalence)
	_, _ = fmt.Fprintf(w, "brier      %.5f\nlog loss   %.5f\nauc        %.4f\n", ev.Brier, ev.LogLoss, ev.AUC)
	for i, fi := range ev.Importance {
		if i == 10 {
			break
		}
		_, _ = fmt.Fprintf(w, "  %-24s %.3f\n", fi.Feature, fi.Gain)
	}
}
