package main

import (
	"encoding/json"

	service "github.com/okian/sackline/internal/app"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var uri, region string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the column layout and accepted values of an artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadArtifact(cmd.Context(), uri, region)
			if err != nil {
				return err
			}
			svc, err := service.New(service.WithArtifact(a))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Schema())
		},
	}
	cmd.Flags().StringVar(&uri, "artifact", "", "Artifact location: local path or s3://bucket/key")
	cmd.Flags().StringVar(&region, "aws-region", "us-east-1", "AWS region for s3:// artifacts")
	_ = cmd.MarkFlagRequired("artifact")
	return cmd
}
