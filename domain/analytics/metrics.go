package analytics

import (
	"fmt"
	"math"

	"github.com/sancella/sancella/domain"
)

// Overall score weights
const (
	weightCompletion = 0.4
	weightOnTime     = 0.4
	weightPriority   = 0.2
)

// ComputeMetrics reduces tasks into the dashboard figures. Counts use the
// stored status. Every rate is 0 when its denominator is 0.
func ComputeMetrics(tasks []domain.Task, currentUserID string) domain.MetricsBundle {
	m := domain.ZeroMetrics()
	m.TotalTasks = len(tasks)

	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusCompleted:
			m.CompletedTasks++
			if t.FinishedBeforeDue() {
				m.OnTimeCompletions++
			}
			if t.IsAssignedTo(currentUserID) {
				m.UserCompleted++
			}
		case domain.TaskStatusPending:
			m.PendingTasks++
			if t.IsAssignedTo(currentUserID) {
				m.UserActive++
			}
		case domain.TaskStatusInProgress:
			m.InProgressTasks++
			if t.IsAssignedTo(currentUserID) {
				m.UserActive++
			}
		}

		if t.Priority == domain.TaskPriorityHigh {
			m.HighPriorityTotal++
			if t.Status == domain.TaskStatusCompleted {
				m.HighPriorityCompleted++
			}
		}
	}

	m.CompletionRate = Rate(m.CompletedTasks, m.TotalTasks)
	m.OnTimeRate = Rate(m.OnTimeCompletions, m.CompletedTasks)
	m.PriorityRate = Rate(m.HighPriorityCompleted, m.HighPriorityTotal)
	m.OverallScore = OverallScore(m)

	m.UserCompletedShare = Share(m.UserCompleted, m.CompletedTasks)
	m.UserActiveShare = Share(m.UserActive, m.PendingTasks+m.InProgressTasks)
	return m
}

// OverallScore blends completion, punctuality and priority handling. The on-time
// and priority terms divide by max(count, 1) rather than skipping the term.
func OverallScore(m domain.MetricsBundle) float64 {
	var completion float64
	if m.TotalTasks > 0 {
		completion = float64(m.CompletedTasks) / float64(m.TotalTasks)
	}
	onTime := float64(m.OnTimeCompletions) / float64(atLeastOne(m.CompletedTasks))
	priority := float64(m.HighPriorityCompleted) / float64(atLeastOne(m.HighPriorityTotal))

	return (completion*weightCompletion + onTime*weightOnTime + priority*weightPriority) * 100
}

// Rate returns part/total as a percentage, 0 when total is 0
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// PercentOfTotal is Rate rounded to one decimal
func PercentOfTotal(part, total int) float64 {
	return Round1(Rate(part, total))
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Share formats part as a share of total for the per-user stat cards
func Share(part, total int) string {
	if total == 0 {
		return domain.ZeroShare
	}
	return fmt.Sprintf("%.1f%% mes tickets", Rate(part, total))
}

func atLeastOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// Stat card keys
const (
	CardTotal        = "total"
	CardPending      = "pending"
	CardInProgress   = "in_progress"
	CardCompleted    = "completed"
	CardMyCompleted  = "my_completed"
	CardMyActive     = "my_active"
	CardOnTime       = "on_time"
	CardOverallScore = "overall_score"
)

// StatCards turns a bundle into the ordered dashboard tiles
func StatCards(m domain.MetricsBundle) []domain.StatCard {
	return []domain.StatCard{
		{
			Key:        CardTotal,
			Title:      "Total Tickets",
			Value:      float64(m.TotalTasks),
			Change:     fmt.Sprintf("%.1f%% terminés", m.CompletionRate),
			IsIncrease: m.CompletionRate > 0,
		},
		{
			Key:        CardPending,
			Title:      "En Attente",
			Value:      float64(m.PendingTasks),
			Change:     fmt.Sprintf("%.1f%% du total", Rate(m.PendingTasks, m.TotalTasks)),
			IsIncrease: false,
		},
		{
			Key:        CardInProgress,
			Title:      "En Cours",
			Value:      float64(m.InProgressTasks),
			Change:     fmt.Sprintf("%.1f%% du total", Rate(m.InProgressTasks, m.TotalTasks)),
			IsIncrease: m.InProgressTasks > 0,
		},
		{
			Key:        CardCompleted,
			Title:      "Terminés",
			Value:      float64(m.CompletedTasks),
			Change:     fmt.Sprintf("%.1f%% du total", m.CompletionRate),
			IsIncrease: m.CompletedTasks > 0,
		},
		{
			Key:        CardMyCompleted,
			Title:      "Mes Tickets Terminés",
			Value:      float64(m.UserCompleted),
			Change:     m.UserCompletedShare,
			IsIncrease: m.UserCompleted > 0,
		},
		{
			Key:        CardMyActive,
			Title:      "Mes Tickets Actifs",
			Value:      float64(m.UserActive),
			Change:     m.UserActiveShare,
			IsIncrease: false,
		},
		{
			Key:        CardOnTime,
			Title:      "Respect des Délais",
			Value:      Round1(m.OnTimeRate),
			Change:     fmt.Sprintf("%d/%d à temps", m.OnTimeCompletions, m.CompletedTasks),
			IsIncrease: m.OnTimeRate >= 50,
		},
		{
			Key:        CardOverallScore,
			Title:      "Score Global",
			Value:      Round1(m.OverallScore),
			Change:     fmt.Sprintf("%.1f%% priorité haute résolue", m.PriorityRate),
			IsIncrease: m.OverallScore >= 50,
		},
	}
}

// SafeComputeMetrics is ComputeMetrics behind a recover boundary. A panic
// yields the zero bundle and an error diagnostic instead of propagating.
func SafeComputeMetrics(tasks []domain.Task, currentUserID string) (domain.MetricsBundle, *Diagnostic) {
	return guardMetrics(func() domain.MetricsBundle {
		return ComputeMetrics(tasks, currentUserID)
	})
}

func guardMetrics(compute func() domain.MetricsBundle) (m domain.MetricsBundle, diag *Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			m = domain.ZeroMetrics()
			diag = &Diagnostic{
				Stage:    StageMetrics,
				Index:    -1,
				Reason:   fmt.Sprintf("metrics computation failed: %v", r),
				Severity: SeverityError,
			}
		}
	}()
	return compute(), nil
}
