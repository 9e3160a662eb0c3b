package main

import (
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/db"
	"go.uber.org/zap"
)

func migrateCmd(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.config.ValidateDatabase(); err != nil {
				return err
			}
			a.log.Info("migrating database", zap.String("to", version))
			return db.MigrateTo(cmd.Context(), a.config.Database.URL, version)
		},
	}
	cmd.Flags().StringVar(&version, "to", "latest", `target schema version: "latest" or a migration number`)
	return cmd
}
