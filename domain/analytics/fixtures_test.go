package analytics

import (
	"time"

	"github.com/sancella/sancella/domain"
)

type taskOpt func(*domain.Task)

func newTask(id string, opts ...taskOpt) domain.Task {
	t := domain.Task{
		ID:       domain.ID(id),
		Name:     "Task " + id,
		Status:   domain.TaskStatusPending,
		Priority: domain.TaskPriorityLow,
		Products: []domain.Product{},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func withStatus(s domain.TaskStatus) taskOpt {
	return func(t *domain.Task) { t.Status = s }
}

func withComputed(s domain.TaskStatus) taskOpt {
	return func(t *domain.Task) { t.ComputedStatus = &s }
}

func withPriority(p domain.TaskPriority) taskOpt {
	return func(t *domain.Task) { t.Priority = p }
}

func withName(name string) taskOpt {
	return func(t *domain.Task) { t.Name = name }
}

func withDescription(d string) taskOpt {
	return func(t *domain.Task) { t.Description = &d }
}

func withProject(project string, products ...string) taskOpt {
	return func(t *domain.Task) {
		if len(products) == 0 {
			products = []string{"Produit"}
		}
		for _, name := range products {
			t.Products = append(t.Products, domain.Product{
				Name:    name,
				Project: &domain.Project{Name: project},
			})
		}
	}
}

func withProducts(products ...domain.Product) taskOpt {
	return func(t *domain.Task) { t.Products = products }
}

func withNoProducts() taskOpt {
	return func(t *domain.Task) { t.Products = nil }
}

func withCreated(ts time.Time) taskOpt {
	return func(t *domain.Task) { t.CreatedAt = &ts }
}

func withDates(due, completed string) taskOpt {
	return func(t *domain.Task) {
		d := mustDate(due)
		c := mustDate(completed)
		t.DueDate = &d
		t.CompletedAt = &c
	}
}

func withAssignee(userID string) taskOpt {
	return func(t *domain.Task) {
		id := domain.ID(userID)
		t.AssignedTo = &id
	}
}

func mustDate(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return d
}
