package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/services"
)

// newSessionsCmd creates the sessions subcommand.
func newSessionsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireDatabase(cfg); err != nil {
				return err
			}

			backend, err := deps.withDefaults().OpenBackend(cmd.Context(), cfg, log)
			if err != nil {
				return oops.Code("BACKEND_OPEN_FAILED").Wrap(err)
			}
			defer backend.Close()

			manager := services.NewSessionManager(core.SessionConfig{MaxAge: cfg.Session.MaxAge}, backend.Sessions, nil, log)
			count, err := pruneOnce(cmd.Context(), manager, nil, log)
			if err != nil {
				return err
			}
			cmd.Printf("pruned %d expired sessions\n", count)
			return nil
		},
	})

	return cmd
}
