package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/domain"
)

const exportPageSize = 100

func exportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every cached vehicle record as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err = config.Validate(a.config.ValidateDatabase); err != nil {
				return
			}
			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx)
			if err != nil {
				return
			}
			defer pool.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				var file *os.File
				file, err = os.Create(out)
				if err != nil {
					return
				}
				defer func() {
					if closeErr := file.Close(); closeErr != nil && err == nil {
						err = closeErr
					}
				}()
				w = file
			}

			vehicles := make([]domain.VehicleRecord, 0)
			params := domain.ListVehiclesParams{Limit: exportPageSize}
			for {
				var page domain.Page[domain.VehicleRecord]
				page, err = store.List(ctx, params)
				if err != nil {
					return
				}
				vehicles = append(vehicles, page.Items...)
				params.Offset += int32(len(page.Items))
				if len(page.Items) == 0 || int64(params.Offset) >= page.Total {
					break
				}
			}

			encoder := json.NewEncoder(w)
			encoder.SetIndent("", "  ")
			return encoder.Encode(vehicles)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; stdout when empty")
	return cmd
}
