package inbound

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sancella/sancella/domain"
	"github.com/sancella/sancella/domain/analytics"
)

// ExportFormat is the file format of a dashboard export
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// IsValid reports whether the format is supported
func (f ExportFormat) IsValid() bool {
	return f == ExportJSON || f == ExportCSV
}

type DashboardRequest struct {
	UserID string              `json:"-"`
	Query  analytics.TaskQuery `json:"query"`
}

// EvaluateRequest carries a client-side snapshot to aggregate instead of the
// stored dataset. Tasks and Interventions are raw JSON arrays.
type EvaluateRequest struct {
	UserID        string              `json:"-"`
	Query         analytics.TaskQuery `json:"query"`
	Tasks         json.RawMessage     `json:"tasks"`
	Interventions json.RawMessage     `json:"interventions"`
}

type DashboardView struct {
	Metrics         domain.MetricsBundle       `json:"metrics"`
	StatCards       []domain.StatCard          `json:"stat_cards"`
	Projects        []domain.ProjectGroup      `json:"projects"`
	TotalTasks      int                        `json:"total_tasks"`
	StatusBreakdown []domain.StatusPoint       `json:"status_breakdown"`
	Products        []domain.ProductGroup      `json:"products,omitempty"`
	Interventions   []domain.InterventionGroup `json:"interventions"`
	Diagnostics     []analytics.Diagnostic     `json:"diagnostics,omitempty"`
	Warning         string                     `json:"warning,omitempty"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

type TaskListResponse struct {
	Tasks   []domain.Task `json:"tasks"`
	Total   int           `json:"total"`
	Warning string        `json:"warning,omitempty"`
}

type ExportRequest struct {
	UserID string              `json:"-"`
	Query  analytics.TaskQuery `json:"query"`
	Format ExportFormat        `json:"format"`
}

type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

type DashboardUseCase interface {
	Dashboard(ctx context.Context, req DashboardRequest) (*DashboardView, error)
	Evaluate(ctx context.Context, req EvaluateRequest) (*DashboardView, error)
	ListTasks(ctx context.Context, query analytics.TaskQuery) (*TaskListResponse, error)
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
