package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sancella/sancella/domain"
)

// Intervention is one reviewed action as stored in the interventions table
type Intervention struct {
	ID          string
	TaskID      string
	ProjectID   string
	Status      string
	CreatedAt   *time.Time
	RespondedAt *time.Time
}

// Seeder writes records into the store. It backs the seed command and tests.
type Seeder struct {
	db     *sql.DB
	driver string
}

func NewSeeder(db *sql.DB, driver string) *Seeder {
	return &Seeder{db: db, driver: driver}
}

// SaveTask upserts a task with its products and their projects in one transaction
func (s *Seeder) SaveTask(ctx context.Context, task domain.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM task_products WHERE task_id = $1"), string(task.ID)); err != nil {
		return fmt.Errorf("failed to clear task products: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM tasks WHERE id = $1"), string(task.ID)); err != nil {
		return fmt.Errorf("failed to replace task: %w", err)
	}

	var assignedTo interface{}
	if task.AssignedTo != nil {
		assignedTo = string(*task.AssignedTo)
	}
	var computed interface{}
	if task.ComputedStatus != nil {
		computed = string(*task.ComputedStatus)
	}
	var description interface{}
	if task.Description != nil {
		description = *task.Description
	}

	query := `
        INSERT INTO tasks (id, name, description, status, computed_status, priority, created_at, due_date, completed_at, assigned_to)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	if _, err := tx.ExecContext(ctx, s.q(query),
		string(task.ID),
		task.Name,
		description,
		string(task.Status),
		computed,
		string(task.Priority),
		nullTime(task.CreatedAt),
		nullTime(task.DueDate),
		nullTime(task.CompletedAt),
		assignedTo,
	); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	for pos, p := range task.Products {
		productID := string(p.ID)
		if productID == "" {
			productID = fmt.Sprintf("%s-%d", task.ID, pos)
		}
		var projectID interface{}
		if p.Project != nil {
			pid := string(p.Project.ID)
			if pid == "" {
				pid = p.Project.Name
			}
			if err := s.upsertProject(ctx, tx, pid, p.Project.Name); err != nil {
				return err
			}
			projectID = pid
		}
		if err := s.upsertProduct(ctx, tx, productID, p.Name, projectID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.q("INSERT INTO task_products (task_id, product_id, position) VALUES ($1, $2, $3)"),
			string(task.ID), productID, pos); err != nil {
			return fmt.Errorf("failed to link product %s: %w", productID, err)
		}
	}

	return tx.Commit()
}

// SaveIntervention inserts an intervention row
func (s *Seeder) SaveIntervention(ctx context.Context, in Intervention) error {
	var taskID, projectID interface{}
	if in.TaskID != "" {
		taskID = in.TaskID
	}
	if in.ProjectID != "" {
		projectID = in.ProjectID
	}
	query := `
        INSERT INTO interventions (id, task_id, project_id, status, created_at, responded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := s.db.ExecContext(ctx, s.q(query),
		in.ID, taskID, projectID, in.Status, nullTime(in.CreatedAt), nullTime(in.RespondedAt),
	); err != nil {
		return fmt.Errorf("failed to insert intervention: %w", err)
	}
	return nil
}

// SaveProject upserts a project
func (s *Seeder) SaveProject(ctx context.Context, id, name string) error {
	return s.upsertProject(ctx, s.db, id, name)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Seeder) upsertProject(ctx context.Context, ex execer, id, name string) error {
	query := `
        INSERT INTO projects (id, name) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET name = excluded.name
    `
	if _, err := ex.ExecContext(ctx, s.q(query), id, name); err != nil {
		return fmt.Errorf("failed to upsert project %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) upsertProduct(ctx context.Context, ex execer, id, name string, projectID interface{}) error {
	query := `
        INSERT INTO products (id, name, project_id) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET name = excluded.name, project_id = excluded.project_id
    `
	if _, err := ex.ExecContext(ctx, s.q(query), id, name, projectID); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) q(query string) string {
	return Rebind(s.driver, query)
}

// nullTime stores instants in UTC. Postgres TIMESTAMP columns drop the offset
// and lib/pq reads them back as UTC, so any other zone would shift the value.
// On sqlite it also keeps the stored text ordered like the instants.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
