package analytics

import (
	"strings"
	"time"

	"github.com/sancella/sancella/domain"
)

// FilterAll is the predicate value that disables the status and project filters
const FilterAll = "all"

// TaskQuery is the conjunction of optional task predicates. Zero values match
// everything.
type TaskQuery struct {
	Search    string     `json:"search,omitempty"`
	Status    string     `json:"status,omitempty"`
	Project   string     `json:"project,omitempty"`
	TimeRange RangeLabel `json:"time_range,omitempty"`
	Period    Period     `json:"period,omitempty"`
}

// HasProject reports whether a single project is selected
func (q TaskQuery) HasProject() bool {
	return q.Project != "" && q.Project != FilterAll
}

// FilterTasks returns the tasks matching every predicate of q, in input order.
// The input slice is not modified.
func FilterTasks(tasks []domain.Task, q TaskQuery, now time.Time) []domain.Task {
	needle := strings.ToLower(q.Search)

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesSearch(t, needle) {
			continue
		}
		if q.Status != "" && q.Status != FilterAll && string(t.Status) != q.Status {
			continue
		}
		if q.HasProject() && t.ProjectName() != q.Project {
			continue
		}
		if !IsWithinRange(t.CreatedAt, q.TimeRange, now) {
			continue
		}
		if !IsWithinPeriod(t.CreatedAt, q.Period, now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterInterventions keeps the summaries whose creation date is within r
func FilterInterventions(summaries []domain.InterventionSummary, r RangeLabel, now time.Time) []domain.InterventionSummary {
	out := make([]domain.InterventionSummary, 0, len(summaries))
	for _, s := range summaries {
		if IsWithinRange(s.CreatedAt, r, now) {
			out = append(out, s)
		}
	}
	return out
}

// matchesSearch is a case-insensitive substring match on name, description and
// project name. needle must already be lower-cased.
func matchesSearch(t domain.Task, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Name), needle) {
		return true
	}
	if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle) {
		return true
	}
	if p, ok := t.Project(); ok && strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	return false
}
