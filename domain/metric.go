package domain

// MetricsBundle holds the scalar figures shown on the dashboard.
// Rates are percentages in [0, 100].
type MetricsBundle struct {
	TotalTasks            int     `json:"total_tasks"`
	PendingTasks          int     `json:"pending_tasks"`
	InProgressTasks       int     `json:"in_progress_tasks"`
	CompletedTasks        int     `json:"completed_tasks"`
	OnTimeCompletions     int     `json:"on_time_completions"`
	HighPriorityTotal     int     `json:"high_priority_total"`
	HighPriorityCompleted int     `json:"high_priority_completed"`
	CompletionRate        float64 `json:"completion_rate"`
	OnTimeRate            float64 `json:"on_time_rate"`
	PriorityRate          float64 `json:"priority_rate"`
	OverallScore          float64 `json:"overall_score"`

	UserCompleted      int    `json:"user_completed"`
	UserActive         int    `json:"user_active"`
	UserCompletedShare string `json:"user_completed_share"`
	UserActiveShare    string `json:"user_active_share"`
}

// ZeroMetrics is the fallback bundle used when computation fails
func ZeroMetrics() MetricsBundle {
	return MetricsBundle{
		UserCompletedShare: ZeroShare,
		UserActiveShare:    ZeroShare,
	}
}

// ZeroShare is the share label used when the category total is zero
const ZeroShare = "0% mes tickets"

// StatCard is a display-ready dashboard tile
type StatCard struct {
	Key        string  `json:"key"`
	Title      string  `json:"title"`
	Value      float64 `json:"value"`
	Change     string  `json:"change"`
	IsIncrease bool    `json:"is_increase"`
}

// ProjectGroup aggregates the tasks of one project
type ProjectGroup struct {
	Project        string  `json:"project"`
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	InProgress     int     `json:"in_progress"`
	Completed      int     `json:"completed"`
	OnTime         int     `json:"on_time"`
	Delayed        int     `json:"delayed"`
	CompletionRate float64 `json:"completion_rate"`
	Percent        float64 `json:"percent"`
}

// StatusPoint is one bar of the per-status chart
type StatusPoint struct {
	Status string `json:"status"`
	Value  int    `json:"value"`
}

// Status chart labels
const (
	StatusLabelPending    = "En Attente"
	StatusLabelInProgress = "En Cours"
	StatusLabelCompleted  = "Terminés"
)

// ProductGroup aggregates tasks per product within a project
type ProductGroup struct {
	Product    string `json:"product"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

// InterventionGroup is an intervention summary with derived rates
type InterventionGroup struct {
	Project      string             `json:"project"`
	Total        int                `json:"total"`
	Approved     int                `json:"approved"`
	Refused      int                `json:"refused"`
	Pending      int                `json:"pending"`
	ApprovalRate float64            `json:"approval_rate"`
	RefusalRate  float64            `json:"refusal_rate"`
	PendingRate  float64            `json:"pending_rate"`
	ResponseTime *ResponseTimeStats `json:"response_time,omitempty"`
}

// Grouping fallbacks
const (
	NoProjectGroup = "Sans Projet"
	NoProductName  = "Sans Nom"
)
