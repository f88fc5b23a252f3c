// Package scheduler writes dashboard snapshots to disk on a cron schedule
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/domain/analytics"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// ExportConfig describes what the snapshot job writes and when
type ExportConfig struct {
	Schedule string
	Dir      string
	Range    analytics.RangeLabel
	UserID   string
}

// ExportJob exports the dashboard in every supported format
type ExportJob struct {
	dashboard inbound.DashboardUseCase
	config    ExportConfig
	logger    logger.Logger

	mu   sync.Mutex
	cron *rcron.Cron
	// stop releases the context watcher; watcher closes once it has returned
	stop    chan struct{}
	watcher chan struct{}
}

func NewExportJob(dashboard inbound.DashboardUseCase, config ExportConfig, log logger.Logger) *ExportJob {
	return &ExportJob{
		dashboard: dashboard,
		config:    config,
		logger:    log,
	}
}

// RunOnce writes one JSON and one CSV snapshot and returns their paths
func (j *ExportJob) RunOnce(ctx context.Context) ([]string, error) {
	start := time.Now()
	if err := os.MkdirAll(j.config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	var paths []string
	for _, format := range []inbound.ExportFormat{inbound.ExportJSON, inbound.ExportCSV} {
		result, err := j.dashboard.Export(ctx, inbound.ExportRequest{
			UserID: j.config.UserID,
			Query:  analytics.TaskQuery{TimeRange: j.config.Range},
			Format: format,
		})
		if err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", format, err)
		}

		path := filepath.Join(j.config.Dir, result.Filename)
		if err := os.WriteFile(path, result.Content, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	logger.LogPerformance(ctx, j.logger, "snapshot_export", time.Since(start), map[string]interface{}{
		"files": paths,
		"range": j.config.Range,
	})
	return paths, nil
}

// Start schedules RunOnce. The job stops when ctx is cancelled.
func (j *ExportJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	c := rcron.New()
	if _, err := c.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error(ctx, "Scheduled export failed", err, map[string]interface{}{
				"schedule": j.config.Schedule,
			})
		}
	}); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", j.config.Schedule, err)
	}
	c.Start()
	j.cron = c
	stop, done := make(chan struct{}), make(chan struct{})
	j.stop, j.watcher = stop, done

	j.logger.Info(ctx, "Snapshot export scheduled", map[string]interface{}{
		"schedule": j.config.Schedule,
		"dir":      j.config.Dir,
	})

	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			j.stopRun(stop)
		case <-stop:
		}
	}()
	return nil
}

// Stop waits for a running export to finish
func (j *ExportJob) Stop() {
	j.stopRun(nil)
}

// stopRun stops the schedule started alongside run, or whichever is
// current when run is nil. A watcher left over from an earlier Start
// must not stop a later one.
func (j *ExportJob) stopRun(run chan struct{}) {
	j.mu.Lock()
	if run != nil && run != j.stop {
		j.mu.Unlock()
		return
	}
	c, stop := j.cron, j.stop
	j.cron, j.stop = nil, nil
	j.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if c != nil {
		<-c.Stop().Done()
	}
}

// Next returns the next scheduled run, or the zero time when not started
func (j *ExportJob) Next() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron == nil {
		return time.Time{}
	}
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
