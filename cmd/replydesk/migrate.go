package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdavid/replydesk/internal/db"
	"github.com/vdavid/replydesk/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the embedded schema migrations. serve, run-once and reply do this on
start as well; the files are idempotent.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := db.NewConnection(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.CloseConnection(pool)

		applied, err := migrations.Apply(cmd.Context(), pool)
		if err != nil {
			return err
		}
		for _, name := range applied {
			logger.Info().Str("migration", name).Msg("Applied")
		}
		return nil
	},
}
