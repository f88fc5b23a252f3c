package dashboard

import (
	"time"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/domain/analytics"
)

// BuildView runs the aggregation engine over a dataset. Products are only
// broken down when the query selects a single project.
func BuildView(ds Dataset, q analytics.TaskQuery, userID string, now time.Time) inbound.DashboardView {
	filtered := analytics.FilterTasks(ds.Tasks, q, now)

	metrics, diag := analytics.SafeComputeMetrics(filtered, userID)
	var diags []analytics.Diagnostic
	if diag != nil {
		diags = append(diags, *diag)
	}

	projects := analytics.WithPercentages(analytics.GroupByProject(filtered))

	view := inbound.DashboardView{
		Metrics:         metrics,
		StatCards:       analytics.StatCards(metrics),
		Projects:        projects,
		TotalTasks:      analytics.TotalProjectTasks(projects),
		StatusBreakdown: analytics.GroupByStatus(filtered),
		Interventions:   analytics.GroupInterventions(analytics.FilterInterventions(ds.Interventions, q.TimeRange, now)),
		Diagnostics:     diags,
		GeneratedAt:     now,
	}
	if q.HasProject() {
		view.Products = analytics.GroupByProduct(filtered)
	}
	return view
}
