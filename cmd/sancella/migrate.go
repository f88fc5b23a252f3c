package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sancella/sancella/infrastructure/migrate"
)

func newMigrateCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(os.Stderr)
			if err != nil {
				return err
			}
			db, err := rt.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			m := migrate.New(db, rt.cfg.DBDriver, rt.logger)
			if err := m.Run(ctx, mode); err != nil {
				return err
			}
			applied, err := m.Applied(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s complete, applied versions: %v\n", mode, applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", migrate.Up, "Migration direction: up or down")
	return cmd
}
