package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/ingest"
	"github.com/technopolitica/open-registry/internal/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		port      int
		publicKey string
		reg       registryFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the vehicle lookup HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.config
			if cmd.Flags().Changed("port") {
				c.Server.Port = port
			}
			if cmd.Flags().Changed("public-key") {
				c.Server.PublicKey = publicKey
			}
			reg.apply(cmd, c)
			if err := config.Validate(c.ValidateDatabase, c.ValidateRegistry, c.ValidateServer); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on")
	cmd.Flags().StringVar(&publicKey, "public-key", "", fmt.Sprintf("file:// URL or PEM of the RSA key verifying bearer tokens; empty disables auth (env %s)", config.EnvPublicKey))
	reg.register(cmd)
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	var options server.Options
	if a.config.Server.PublicKey != "" {
		publicKey, err := loadPublicKey(a.config.Server.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to read public key: %w", err)
		}
		options.PublicKey = publicKey
	} else {
		a.log.Warn("authentication is disabled")
	}

	pool, store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline, err := a.newPipeline(store, ingest.NewMetrics(registry))
	if err != nil {
		return err
	}
	options.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on specified address: %w", err)
	}
	httpServer := &http.Server{
		Handler:           server.New(pipeline, store, options, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		done <- httpServer.Serve(listener)
	}()
	a.log.Info("listening", zap.String("address", fmt.Sprintf("http://%s", listener.Addr())))

	select {
	case err = <-done:
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = httpServer.Shutdown(shutdownCtx)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}
