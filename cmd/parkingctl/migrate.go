package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/visitor-parking-backend/internal/db/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := migrations.Apply(cmd.Context(), e.pool); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
