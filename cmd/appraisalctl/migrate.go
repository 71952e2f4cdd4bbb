package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Create or update the properties, appraisals, comparables, adjustments
and market_data tables. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			slog.Info("database migrations completed")
			return nil
		},
	}
}
