package main

import (
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/ingest"
)

func lookupCmd(a *app) *cobra.Command {
	var reg registryFlags
	cmd := &cobra.Command{
		Use:   "lookup PLATE...",
		Short: "Ingest plates and print their vehicle records as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.config
			reg.apply(cmd, c)
			if err := config.Validate(c.ValidateDatabase, c.ValidateRegistry); err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			pipeline, err := a.newPipeline(store, ingest.NewMetrics(prometheus.NewRegistry()))
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			var failures []error
			for _, plate := range args {
				vehicle, err := pipeline.Ingest(ctx, plate)
				if err != nil {
					failures = append(failures, err)
					cmd.PrintErrf("%s: %s\n", plate, err)
					continue
				}
				if err := encoder.Encode(vehicle); err != nil {
					return err
				}
			}
			return errors.Join(failures...)
		},
	}
	reg.register(cmd)
	return cmd
}
