package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/config"
	"github.com/sancella/sancella/infrastructure/http/middleware"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

const serviceName = "sancella"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Sancella maintenance dashboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newMigrateCmd(),
		newTokenCmd(),
		newSeedCmd(),
	)
	return root
}

// runtime holds what every command needs
type runtime struct {
	cfg    *config.Config
	logger logger.Logger
}

func loadRuntime(logOutput io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		CorrelationIDHeader: middleware.CorrelationIDHeader,
		EnableRequestLog:    cfg.LogEnableRequestLog,
		ServiceName:         serviceName,
		Output:              logOutput,
	})
	return &runtime{cfg: cfg, logger: log}, nil
}

func (rt *runtime) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sqlstore.Open(ctx, rt.cfg.DBDriver, rt.cfg.DatabaseURL)
	if err != nil {
		rt.logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{
			"driver": rt.cfg.DBDriver,
		})
		return nil, err
	}
	rt.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"driver": rt.cfg.DBDriver,
	})
	return db, nil
}
