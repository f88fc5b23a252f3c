package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/domain"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// Banner messages returned when the repository cannot be read
const (
	WarningStaleData = "Impossible d'actualiser les données. Affichage des dernières données disponibles."
	WarningNoData    = "Impossible de charger les données. Aucune donnée n'est disponible pour le moment."
)

// Dataset is one fetch of the ticketing data
type Dataset struct {
	Tasks         []domain.Task
	Interventions []domain.InterventionSummary
	FetchedAt     time.Time
}

// DatasetLoader reads the repository and keeps the last successful fetch.
// A failed fetch falls back to that snapshot, or to an empty dataset, and
// reports a warning instead of an error.
type DatasetLoader struct {
	repo   outbound.TaskRepository
	clock  outbound.Clock
	logger logger.Logger

	mu       sync.RWMutex
	lastGood *Dataset
}

func NewDatasetLoader(repo outbound.TaskRepository, clock outbound.Clock, log logger.Logger) *DatasetLoader {
	return &DatasetLoader{
		repo:   repo,
		clock:  clock,
		logger: log,
	}
}

// Load returns the current dataset and a warning when it is not fresh
func (l *DatasetLoader) Load(ctx context.Context) (Dataset, string) {
	start := time.Now()

	tasks, err := l.repo.ListTasks(ctx)
	if err != nil {
		return l.fallback(ctx, "list_tasks", err)
	}
	interventions, err := l.repo.ListInterventionSummaries(ctx)
	if err != nil {
		return l.fallback(ctx, "list_intervention_summaries", err)
	}

	ds := Dataset{
		Tasks:         tasks,
		Interventions: interventions,
		FetchedAt:     l.clock.Now(),
	}

	l.mu.Lock()
	l.lastGood = &ds
	l.mu.Unlock()

	logger.LogPerformance(ctx, l.logger, "load_dataset", time.Since(start), map[string]interface{}{
		"tasks":         len(tasks),
		"interventions": len(interventions),
	})
	return ds, ""
}

// LastGood returns the last successful fetch, if any
func (l *DatasetLoader) LastGood() (Dataset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.lastGood == nil {
		return Dataset{}, false
	}
	return *l.lastGood, true
}

func (l *DatasetLoader) fallback(ctx context.Context, operation string, err error) (Dataset, string) {
	if ds, ok := l.LastGood(); ok {
		l.logger.Error(ctx, "Dataset fetch failed, serving last known good", err, map[string]interface{}{
			"operation":  operation,
			"fetched_at": ds.FetchedAt,
		})
		return ds, WarningStaleData
	}

	l.logger.Error(ctx, "Dataset fetch failed, no data available", err, map[string]interface{}{
		"operation": operation,
	})
	return Dataset{
		Tasks:         []domain.Task{},
		Interventions: []domain.InterventionSummary{},
	}, WarningNoData
}
