package analytics

import (
	"math"
	"sort"

	"github.com/sancella/sancella/domain"
)

// GroupByProject buckets tasks by the project of their first product. Tasks
// without products are left out; a product without a named project falls in
// the "Sans Projet" bucket. Groups are ordered by total, largest first, ties
// in encounter order.
func GroupByProject(tasks []domain.Task) []domain.ProjectGroup {
	index := make(map[string]int)
	var groups []domain.ProjectGroup

	for _, t := range tasks {
		if !t.HasProducts() {
			continue
		}
		name := domain.NoProjectGroup
		if p, ok := t.Project(); ok && p.Name != "" {
			name = p.Name
		}

		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, domain.ProjectGroup{Project: name})
		}
		g := &groups[i]
		g.Total++

		switch t.EffectiveStatus() {
		case domain.TaskStatusPending:
			g.Pending++
		case domain.TaskStatusInProgress:
			g.InProgress++
		case domain.TaskStatusCompleted:
			g.Completed++
			if t.FinishedBeforeDue() {
				g.OnTime++
			} else if t.FinishedAfterDue() {
				g.Delayed++
			}
		}
	}

	for i := range groups {
		groups[i].CompletionRate = Rate(groups[i].Completed, groups[i].Total)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total > groups[b].Total
	})
	if groups == nil {
		return []domain.ProjectGroup{}
	}
	return groups
}

// TotalProjectTasks sums the group totals
func TotalProjectTasks(groups []domain.ProjectGroup) int {
	total := 0
	for _, g := range groups {
		total += g.Total
	}
	return total
}

// WithPercentages returns a copy of groups with Percent set to each group's
// share of TotalProjectTasks.
func WithPercentages(groups []domain.ProjectGroup) []domain.ProjectGroup {
	total := TotalProjectTasks(groups)
	out := make([]domain.ProjectGroup, len(groups))
	for i, g := range groups {
		g.Percent = PercentOfTotal(g.Total, total)
		out[i] = g
	}
	return out
}

// GroupByStatus counts tasks into the three fixed status buckets, always in
// the same order and always present.
func GroupByStatus(tasks []domain.Task) []domain.StatusPoint {
	var pending, inProgress, completed int
	for _, t := range tasks {
		switch t.EffectiveStatus() {
		case domain.TaskStatusPending:
			pending++
		case domain.TaskStatusInProgress:
			inProgress++
		case domain.TaskStatusCompleted:
			completed++
		}
	}
	return []domain.StatusPoint{
		{Status: domain.StatusLabelPending, Value: pending},
		{Status: domain.StatusLabelInProgress, Value: inProgress},
		{Status: domain.StatusLabelCompleted, Value: completed},
	}
}

// GroupByProduct credits every product of every task, so a task with several
// products counts once per product.
func GroupByProduct(tasks []domain.Task) []domain.ProductGroup {
	index := make(map[string]int)
	var groups []domain.ProductGroup

	for _, t := range tasks {
		status := t.EffectiveStatus()
		for _, p := range t.Products {
			name := p.Name
			if name == "" {
				name = domain.NoProductName
			}
			i, ok := index[name]
			if !ok {
				i = len(groups)
				index[name] = i
				groups = append(groups, domain.ProductGroup{Product: name})
			}
			g := &groups[i]
			g.Total++
			switch status {
			case domain.TaskStatusPending:
				g.Pending++
			case domain.TaskStatusInProgress:
				g.InProgress++
			case domain.TaskStatusCompleted:
				g.Completed++
			}
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total > groups[b].Total
	})
	if groups == nil {
		return []domain.ProductGroup{}
	}
	return groups
}

// GroupInterventions sums the summaries per project and derives the approval,
// refusal and pending rates. Response time statistics of the same project are
// merged: extremes are kept and averages weighted by intervention count.
func GroupInterventions(summaries []domain.InterventionSummary) []domain.InterventionGroup {
	index := make(map[string]int)
	var groups []domain.InterventionGroup
	var weights []int

	for _, s := range summaries {
		name := s.Project
		if name == "" {
			name = domain.NoProjectGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, domain.InterventionGroup{Project: name})
			weights = append(weights, 0)
		}
		g := &groups[i]
		g.Total += s.Total
		g.Approved += s.Approved
		g.Refused += s.Refused
		g.Pending += s.Pending

		if s.ResponseTime != nil {
			g.ResponseTime = mergeResponseTime(g.ResponseTime, weights[i], *s.ResponseTime, s.Total)
			weights[i] += atLeastOne(s.Total)
		}
	}

	for i := range groups {
		g := &groups[i]
		g.ApprovalRate = Rate(g.Approved, g.Total)
		g.RefusalRate = Rate(g.Refused, g.Total)
		g.PendingRate = Rate(g.Pending, g.Total)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total > groups[b].Total
	})
	if groups == nil {
		return []domain.InterventionGroup{}
	}
	return groups
}

func mergeResponseTime(acc *domain.ResponseTimeStats, accWeight int, next domain.ResponseTimeStats, nextCount int) *domain.ResponseTimeStats {
	if acc == nil {
		out := next
		return &out
	}
	w := float64(atLeastOne(nextCount))
	total := float64(accWeight) + w
	return &domain.ResponseTimeStats{
		Average: (acc.Average*float64(accWeight) + next.Average*w) / total,
		Min:     math.Min(acc.Min, next.Min),
		Max:     math.Max(acc.Max, next.Max),
	}
}
