package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/db"
	"github.com/technopolitica/open-registry/internal/ingest"
	"github.com/technopolitica/open-registry/internal/logging"
	"github.com/technopolitica/open-registry/internal/registry"
	"go.uber.org/zap"
)

// registryFlags binds the registry overrides shared by every command that
// fetches vehicles.
type registryFlags struct {
	baseURL string
	apiKey  string
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.baseURL, "registry-url", "", "vehicle registry base URL")
	cmd.Flags().StringVar(&f.apiKey, "registry-api-key", "", fmt.Sprintf("vehicle registry API key (env %s)", config.EnvRegistryAPIKey))
}

func (f *registryFlags) apply(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("registry-url") {
		c.Registry.BaseURL = f.baseURL
	}
	if cmd.Flags().Changed("registry-api-key") {
		c.Registry.APIKey = f.apiKey
	}
}

// openStore connects to the database and makes sure the schema is current.
func (a *app) openStore(ctx context.Context) (*pgxpool.Pool, *db.VehicleStore, error) {
	pool, err := db.Connect(ctx, a.config.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store := db.NewVehicleStore(pool, a.log)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, store, nil
}

func (a *app) newPipeline(store ingest.Store, metrics *ingest.Metrics) (*ingest.Pipeline, error) {
	client, err := registry.NewClient(registry.ClientConfig{
		BaseURL: a.config.Registry.BaseURL,
		APIKey:  a.config.Registry.APIKey,
		Timeout: a.config.Registry.Timeout,
	}, a.log)
	if err != nil {
		return nil, err
	}
	a.log.Info("using vehicle registry",
		zap.String("base_url", a.config.Registry.BaseURL),
		logging.APIKey("api_key", a.config.Registry.APIKey))
	return ingest.NewPipeline(client, store, metrics, a.log), nil
}
