// Command platereg reads licence plates from car images, looks the vehicles
// up in the Statens vegvesen registry and caches them in Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/technopolitica/open-registry/internal/config"
	"github.com/technopolitica/open-registry/internal/logging"
	"go.uber.org/zap"
)

const appName = "platereg"

var Version = "dev"

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	dbURL      string

	config *config.Config
	log    *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Licence plate recognition and vehicle registry cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (json, console)")
	flags.StringVar(&a.dbURL, "db-url", "", fmt.Sprintf("postgres:// connection string (env %s)", config.EnvDBURL))

	cmd.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		ingestCmd(a),
		lookupCmd(a),
		exportCmd(a),
		compareCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) (err error) {
	a.config, err = config.Load(a.configPath)
	if err != nil {
		return
	}
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		a.config.Database.URL = a.dbURL
	}
	if flags.Changed("log-level") {
		a.config.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		a.config.Log.Format = a.logFormat
	}
	a.log, err = logging.New(a.config.Log.Level, a.config.Log.Format)
	return
}
