package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/domain"
)

// Intervention review states as stored in interventions.status
const (
	interventionApproved = "approved"
	interventionRefused  = "refused"
)

// TaskRepository implements outbound.TaskRepository over database/sql. The
// queries take no parameters so the same SQL runs on postgres and sqlite.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) outbound.TaskRepository {
	return &TaskRepository{db: db}
}

// ListTasks returns every task in creation order, undated tasks last. Ties
// fall back to the id, shorter ids first so numeric ids sort numerically.
func (r *TaskRepository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	query := `
        SELECT id, name, description, status, computed_status, priority,
               created_at, due_date, completed_at, assigned_to
        FROM tasks
        ORDER BY CASE WHEN created_at IS NULL THEN 1 ELSE 0 END, created_at, LENGTH(id), id
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	index := make(map[domain.ID]int)
	for rows.Next() {
		var (
			t              domain.Task
			description    sql.NullString
			computedStatus sql.NullString
			createdAt      sql.NullTime
			dueDate        sql.NullTime
			completedAt    sql.NullTime
			assignedTo     sql.NullString
		)
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&description,
			&t.Status,
			&computedStatus,
			&t.Priority,
			&createdAt,
			&dueDate,
			&completedAt,
			&assignedTo,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if description.Valid {
			t.Description = &description.String
		}
		if computedStatus.Valid {
			s := domain.TaskStatus(computedStatus.String)
			t.ComputedStatus = &s
		}
		if assignedTo.Valid && assignedTo.String != "" {
			id := domain.ID(assignedTo.String)
			t.AssignedTo = &id
		}
		t.CreatedAt = timePtr(createdAt)
		t.DueDate = timePtr(dueDate)
		t.CompletedAt = timePtr(completedAt)

		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	if err := r.attachProducts(ctx, tasks, index); err != nil {
		return nil, err
	}

	for i := range tasks {
		tasks[i] = tasks[i].WithDefaults()
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// attachProducts loads the product links of every task in one query
func (r *TaskRepository) attachProducts(ctx context.Context, tasks []domain.Task, index map[domain.ID]int) error {
	query := `
        SELECT tp.task_id, p.id, p.name, pr.id, pr.name
        FROM task_products tp
        JOIN products p ON p.id = tp.product_id
        LEFT JOIN projects pr ON pr.id = p.project_id
        ORDER BY tp.task_id, tp.position, p.id
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list task products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID      domain.ID
			product     domain.Product
			projectID   sql.NullString
			projectName sql.NullString
		)
		if err := rows.Scan(&taskID, &product.ID, &product.Name, &projectID, &projectName); err != nil {
			return fmt.Errorf("failed to scan task product: %w", err)
		}
		if projectID.Valid {
			product.Project = &domain.Project{ID: domain.ID(projectID.String), Name: projectName.String}
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Products = append(tasks[i].Products, product)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate task products: %w", err)
	}
	return nil
}

type interventionBucket struct {
	project string
	day     time.Time
}

// ListInterventionSummaries aggregates interventions per project and calendar
// day (host local time). Response times are hours between creation and
// response, over responded interventions only.
func (r *TaskRepository) ListInterventionSummaries(ctx context.Context) ([]domain.InterventionSummary, error) {
	query := `
        SELECT COALESCE(pr.name, ''), i.status, i.created_at, i.responded_at
        FROM interventions i
        LEFT JOIN projects pr ON pr.id = i.project_id
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list interventions: %w", err)
	}
	defer rows.Close()

	summaries := make(map[interventionBucket]*domain.InterventionSummary)
	responses := make(map[interventionBucket][]float64)
	for rows.Next() {
		var (
			project     string
			status      string
			createdAt   sql.NullTime
			respondedAt sql.NullTime
		)
		if err := rows.Scan(&project, &status, &createdAt, &respondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan intervention: %w", err)
		}

		key := interventionBucket{project: project}
		if createdAt.Valid {
			y, m, d := createdAt.Time.In(time.Local).Date()
			key.day = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		}
		s, ok := summaries[key]
		if !ok {
			s = &domain.InterventionSummary{Project: project}
			if !key.day.IsZero() {
				day := key.day
				s.CreatedAt = &day
			}
			summaries[key] = s
		}

		s.Total++
		switch status {
		case interventionApproved:
			s.Approved++
		case interventionRefused:
			s.Refused++
		default:
			s.Pending++
		}
		if createdAt.Valid && respondedAt.Valid {
			responses[key] = append(responses[key], respondedAt.Time.Sub(createdAt.Time).Hours())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interventions: %w", err)
	}

	out := make([]domain.InterventionSummary, 0, len(summaries))
	for key, s := range summaries {
		s.ResponseTime = responseStats(responses[key])
		out = append(out, *s)
	}
	// most recent first, undated last
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return out[i].Project < out[j].Project
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return out[i].Project < out[j].Project
		}
	})
	return out, nil
}

func responseStats(hours []float64) *domain.ResponseTimeStats {
	if len(hours) == 0 {
		return nil
	}
	stats := &domain.ResponseTimeStats{Min: hours[0], Max: hours[0]}
	var sum float64
	for _, h := range hours {
		sum += h
		if h < stats.Min {
			stats.Min = h
		}
		if h > stats.Max {
			stats.Max = h
		}
	}
	stats.Average = sum / float64(len(hours))
	return stats
}

// timePtr returns stored instants in host local time, the zone the time
// range boundaries are computed in
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid || t.Time.IsZero() {
		return nil
	}
	v := t.Time.In(time.Local)
	return &v
}
