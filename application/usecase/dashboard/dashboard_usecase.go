// Package dashboard serves the aggregated ticketing views: the dashboard
// itself, the filtered task list and file exports.
package dashboard

import (
	"context"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/domain/analytics"
	apperror "github.com/sancella/sancella/domain/error"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

type DashboardUseCaseImpl struct {
	loader *DatasetLoader
	clock  outbound.Clock
	logger logger.Logger
}

func NewDashboardUseCase(
	repo outbound.TaskRepository,
	clock outbound.Clock,
	log logger.Logger,
) inbound.DashboardUseCase {
	return &DashboardUseCaseImpl{
		loader: NewDatasetLoader(repo, clock, log),
		clock:  clock,
		logger: log,
	}
}

func (uc *DashboardUseCaseImpl) Dashboard(ctx context.Context, req inbound.DashboardRequest) (*inbound.DashboardView, error) {
	ds, warning := uc.loader.Load(ctx)

	view := BuildView(ds, req.Query, req.UserID, uc.clock.Now())
	view.Warning = warning
	logger.LogDiagnostics(ctx, uc.logger, view.Diagnostics)
	return &view, nil
}

// Evaluate aggregates a snapshot posted by the client. Records that fail to
// decode are skipped and reported in the view's diagnostics.
func (uc *DashboardUseCaseImpl) Evaluate(ctx context.Context, req inbound.EvaluateRequest) (*inbound.DashboardView, error) {
	tasks, taskDiags := analytics.DecodeTasks(req.Tasks)
	interventions, interventionDiags := analytics.DecodeInterventions(req.Interventions)

	ds := Dataset{
		Tasks:         tasks,
		Interventions: interventions,
		FetchedAt:     uc.clock.Now(),
	}
	view := BuildView(ds, req.Query, req.UserID, ds.FetchedAt)

	var diags []analytics.Diagnostic
	diags = append(diags, taskDiags...)
	diags = append(diags, interventionDiags...)
	diags = append(diags, view.Diagnostics...)
	view.Diagnostics = diags

	logger.LogDiagnostics(ctx, uc.logger, diags)
	return &view, nil
}

func (uc *DashboardUseCaseImpl) ListTasks(ctx context.Context, query analytics.TaskQuery) (*inbound.TaskListResponse, error) {
	ds, warning := uc.loader.Load(ctx)

	tasks := analytics.FilterTasks(ds.Tasks, query, uc.clock.Now())
	return &inbound.TaskListResponse{
		Tasks:   tasks,
		Total:   len(tasks),
		Warning: warning,
	}, nil
}

func (uc *DashboardUseCaseImpl) Export(ctx context.Context, req inbound.ExportRequest) (*inbound.ExportResult, error) {
	if !req.Format.IsValid() {
		return nil, apperror.ErrInvalidExportFormat(string(req.Format))
	}

	ds, warning := uc.loader.Load(ctx)
	if warning != "" {
		uc.logger.Warn(ctx, "Exporting from a stale dataset", map[string]interface{}{
			"format":  req.Format,
			"warning": warning,
		})
	}

	now := uc.clock.Now()
	tasks := analytics.FilterTasks(ds.Tasks, req.Query, now)
	metrics, diag := analytics.SafeComputeMetrics(tasks, req.UserID)
	if diag != nil {
		logger.LogDiagnostics(ctx, uc.logger, []analytics.Diagnostic{*diag})
	}

	result, err := RenderExport(req.Format, tasks, metrics, analytics.StatCards(metrics), now)
	if err != nil {
		uc.logger.Error(ctx, "Export failed", err, map[string]interface{}{"format": req.Format})
		return nil, err
	}

	uc.logger.Info(ctx, "Dashboard exported", map[string]interface{}{
		"format": req.Format,
		"tasks":  len(tasks),
		"bytes":  len(result.Content),
	})
	return result, nil
}
