package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/application/usecase/dashboard"
	"github.com/sancella/sancella/domain/analytics"
	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/http/middleware"
	"github.com/sancella/sancella/infrastructure/http/server"
	"github.com/sancella/sancella/infrastructure/migrate"
	"github.com/sancella/sancella/infrastructure/scheduler"
	"github.com/sancella/sancella/infrastructure/service/jwt"
	"github.com/sancella/sancella/infrastructure/service/ratelimit"
)

func newServeCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, autoMigrate bool) error {
	rt, err := loadRuntime(os.Stdout)
	if err != nil {
		return err
	}
	cfg, log := rt.cfg, rt.logger
	log.Info(ctx, "Application starting", map[string]interface{}{
		"env":    cfg.Environment,
		"driver": cfg.DBDriver,
	})

	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if autoMigrate {
		if err := migrate.New(db, cfg.DBDriver, log).Up(ctx); err != nil {
			return err
		}
	}

	// Redis-backed when enabled; an unreachable Redis degrades to no limiting
	var rateLimitService inbound.RateLimitService
	rs, err := ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled:       cfg.RateLimitEnabled,
		RedisURL:      cfg.RedisURL,
		Requests:      cfg.RateLimitRequests,
		Window:        cfg.RateLimitWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}, logrus.New())
	if err != nil {
		log.Error(ctx, "Failed to initialize rate limit service", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		rateLimitService = ratelimit.NoopRateLimitService{}
	} else {
		rateLimitService = rs
	}

	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		return err
	}

	dashboardUseCase := dashboard.NewDashboardUseCase(sqlstore.NewTaskRepository(db), outbound.SystemClock{}, log)

	var corsOrigins []string
	if cfg.CORSEnabled {
		corsOrigins = cfg.CORSAllowedOrigins
	}
	router := server.NewRouter(server.RouterDeps{
		Dashboard:    dashboardUseCase,
		TokenService: tokenService,
		RateLimiter:  rateLimitService,
		RateLimitPolicy: middleware.RateLimitPolicy{
			Requests:      cfg.RateLimitRequests,
			Window:        cfg.RateLimitWindow,
			BlockDuration: cfg.RateLimitBlockDuration,
		},
		CORSOrigins:      corsOrigins,
		CORSCredentials:  cfg.CORSAllowCredentials,
		EnableRequestLog: cfg.LogEnableRequestLog,
		Logger:           log,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ExportEnabled {
		job := scheduler.NewExportJob(dashboardUseCase, scheduler.ExportConfig{
			Schedule: cfg.ExportSchedule,
			Dir:      cfg.ExportDir,
			Range:    analytics.RangeLabel(cfg.ExportRange),
			UserID:   cfg.ExportUserID,
		}, log)
		if err := job.Start(ctx); err != nil {
			return err
		}
		defer job.Stop()
	}

	srv := server.New(server.Config{
		Addr:         cfg.Addr(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "Server failed to start", err, map[string]interface{}{"addr": cfg.Addr()})
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Server forced to shutdown", err, nil)
		return err
	}
	log.Info(shutdownCtx, "Server exited", nil)
	return nil
}
