package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/sackline/internal/adapters/artifactstore"
	service "github.com/okian/sackline/internal/app"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPredictCmd() *cobra.Command {
	var uri, scenarioPath, region string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a scenario file against an artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadArtifact(ctx, uri, region)
			if err != nil {
				return err
			}
			sc, err := readScenario(scenarioPath)
			if err != nil {
				return err
			}
			pred, err := predictOnce(ctx, a, sc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pred)
		},
	}
	cmd.Flags().StringVar(&uri, "artifact", "", "Artifact location: local path or s3://bucket/key")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	cmd.Flags().StringVar(&region, "aws-region", "us-east-1", "AWS region for s3:// artifacts")
	_ = cmd.MarkFlagRequired("artifact")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func loadArtifact(ctx context.Context, uri, region string) (*artifact.Artifact, error) {
	return artifactstore.New(artifactstore.WithRegion(region)).Load(ctx, uri)
}

// readScenario decodes a single YAML scenario, rejecting unknown keys.
func readScenario(path string) (scenario.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return scenario.Scenario{}, err
	}
	defer func() { _ = f.Close() }()
	return decodeScenario(f)
}

func decodeScenario(r io.Reader) (scenario.Scenario, error) {
	var sc scenario.Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return sc, fmt.Errorf("%w: empty scenario file", scenario.ErrInvalidScenario)
		}
		return sc, fmt.Errorf("%w: %w", scenario.ErrInvalidScenario, err)
	}
	return sc, nil
}

// predictOnce runs sc through a short-lived service with in-memory history.
func predictOnce(ctx context.Context, a *artifact.Artifact, sc scenario.Scenario) (service.Prediction, error) {
	svc, err := service.New(service.WithArtifact(a), service.WithWorkerCount(1))
	if err != nil {
		return service.Prediction{}, err
	}
	if err := svc.Start(ctx); err != nil {
		return service.Prediction{}, err
	}
	defer svc.Stop(context.WithoutCancel(ctx))
	return svc.Predict(ctx, sc)
}
