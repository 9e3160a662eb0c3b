package main

import (
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/report"
)

func compareCmd(a *app) *cobra.Command {
	var groundTruth string
	cmd := &cobra.Command{
		Use:   "compare [results-dir]",
		Short: "Score recognition result files against the ground truth",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.config.Ingest.ResultsDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				dir = "."
			}
			comparison, err := report.Compare(dir, groundTruth)
			if err != nil {
				return err
			}
			return report.RenderTable(cmd.OutOrStdout(), comparison)
		},
	}
	cmd.Flags().StringVar(&groundTruth, "correct", report.DefaultGroundTruthFile, "ground truth CSV inside the results directory")
	return cmd
}
