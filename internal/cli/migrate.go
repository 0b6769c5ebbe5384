package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-gist-favorites/internal/repo"
)

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the favorites schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := repo.ParseBackend(opts.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			db, err := repo.Open(opts.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open %s store: %w", backend, err)
			}
			defer closeDB(db)

			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("backend", backend.String()).Msg("schema up to date")
			return nil
		},
	}
}
