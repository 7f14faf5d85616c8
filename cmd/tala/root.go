package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lborres/tala/internal/config"
	"github.com/lborres/tala/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tala CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tala",
		Short: "tala - username/password auth with opaque session cookies",
		Long: `tala serves sign up, login and logout over HTTP, keeps sessions in
PostgreSQL, Redis or memory, and records events for signed-in users.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newSessionsCmd(deps))

	return cmd
}

// loadConfig reads the config file and environment, then applies flags set on cmd
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log := logging.Setup("tala", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	return cfg, log, nil
}
