package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/application/usecase/dashboard"
	"github.com/sancella/sancella/domain/analytics"
	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/http/validator"
	"github.com/sancella/sancella/infrastructure/scheduler"
)

type exportOptions struct {
	format    string
	rangeFlag string
	out       string
	user      string
	snapshot  bool
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered dashboard to JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(inbound.ExportJSON), "Export format: json or csv")
	cmd.Flags().StringVarP(&opts.rangeFlag, "range", "r", string(analytics.RangeAll), "Time range label")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file, - for stdout (default: generated file name)")
	cmd.Flags().StringVar(&opts.user, "user", "", "User id for the per-user figures (default: EXPORT_USER)")
	cmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "Write both formats to EXPORT_DIR, as the scheduled job does")
	return cmd
}

func runExport(cmd *cobra.Command, opts exportOptions) error {
	ctx := cmd.Context()
	if !validator.ValidateRange(opts.rangeFlag) {
		return fmt.Errorf("unknown range %q", opts.rangeFlag)
	}

	rt, err := loadRuntime(os.Stderr)
	if err != nil {
		return err
	}
	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.user == "" {
		opts.user = rt.cfg.ExportUserID
	}
	uc := dashboard.NewDashboardUseCase(sqlstore.NewTaskRepository(db), outbound.SystemClock{}, rt.logger)

	if opts.snapshot {
		job := scheduler.NewExportJob(uc, scheduler.ExportConfig{
			Dir:    rt.cfg.ExportDir,
			Range:  analytics.RangeLabel(opts.rangeFlag),
			UserID: opts.user,
		}, rt.logger)
		paths, err := job.RunOnce(ctx)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}

	result, err := uc.Export(ctx, inbound.ExportRequest{
		UserID: opts.user,
		Query:  analytics.TaskQuery{TimeRange: analytics.RangeLabel(opts.rangeFlag)},
		Format: inbound.ExportFormat(opts.format),
	})
	if err != nil {
		return err
	}

	switch opts.out {
	case "-":
		_, err = cmd.OutOrStdout().Write(result.Content)
		return err
	case "":
		opts.out = result.Filename
	}
	if err := os.WriteFile(opts.out, result.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), opts.out)
	return nil
}
