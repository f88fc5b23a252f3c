package outbound

import (
	"context"
	"time"

	"github.com/sancella/sancella/domain"
)

// TaskRepository reads the ticketing dataset
type TaskRepository interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListInterventionSummaries(ctx context.Context) ([]domain.InterventionSummary, error)
}

// Clock supplies the reference time for date bucketing
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in host local time
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
