package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sancella/sancella/domain/analytics"
	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// newSeedCmd imports a JSON array of tasks, as returned by the ticketing
// backend, into the local store.
func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import tasks from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			payload, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			ctx := cmd.Context()
			rt, err := loadRuntime(os.Stderr)
			if err != nil {
				return err
			}

			tasks, diags := analytics.DecodeTasks(payload)
			logger.LogDiagnostics(ctx, rt.logger, diags)

			db, err := rt.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			seeder := sqlstore.NewSeeder(db, rt.cfg.DBDriver)
			for _, t := range tasks {
				if err := seeder.SaveTask(ctx, t); err != nil {
					return fmt.Errorf("task %s: %w", t.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tasks, skipped %d records\n", len(tasks), len(diags))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding an array of tasks")
	return cmd
}
