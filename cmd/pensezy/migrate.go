package main

import (
	"github.com/spf13/cobra"

	"github.com/ksInsandji/pensezy-edition/internal/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				defer e.close()
				if err := db.Migrate(cmd.Context(), e.db); err != nil {
					return err
				}
				e.log.Base.Info("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of each migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				defer e.close()
				return db.MigrationStatus(cmd.Context(), e.db)
			},
		},
	)
	return cmd
}
