package dashboard

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/domain"
	apperror "github.com/sancella/sancella/domain/error"
)

// CSVHeader is the fixed column order of the CSV export
var CSVHeader = []string{"Task Title", "Project", "Status", "Priority", "Created Date"}

const exportDateLayout = "2006-01-02"

// Snapshot is the JSON export document
type Snapshot struct {
	ExportDate time.Time            `json:"exportDate"`
	Summary    domain.MetricsBundle `json:"summary"`
	Stats      []domain.StatCard    `json:"stats"`
	Tasks      []domain.Task        `json:"tasks"`
}

// RenderExport serializes filtered tasks and their summary in the given format
func RenderExport(format inbound.ExportFormat, tasks []domain.Task, summary domain.MetricsBundle, stats []domain.StatCard, at time.Time) (*inbound.ExportResult, error) {
	switch format {
	case inbound.ExportJSON:
		content, err := json.MarshalIndent(Snapshot{
			ExportDate: at,
			Summary:    summary,
			Stats:      stats,
			Tasks:      tasks,
		}, "", "  ")
		if err != nil {
			return nil, apperror.ErrExportFailed(string(format), err)
		}
		return &inbound.ExportResult{
			Content:     content,
			ContentType: "application/json",
			Filename:    exportFilename(format, at),
		}, nil

	case inbound.ExportCSV:
		content, err := renderCSV(tasks)
		if err != nil {
			return nil, apperror.ErrExportFailed(string(format), err)
		}
		return &inbound.ExportResult{
			Content:     content,
			ContentType: "text/csv; charset=utf-8",
			Filename:    exportFilename(format, at),
		}, nil

	default:
		return nil, apperror.ErrInvalidExportFormat(string(format))
	}
}

func renderCSV(tasks []domain.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		created := domain.NoProjectName
		if t.CreatedAt != nil {
			created = t.CreatedAt.Format(exportDateLayout)
		}
		record := []string{
			t.Name,
			t.ProjectName(),
			string(t.Status),
			string(t.Priority),
			created,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportFilename(format inbound.ExportFormat, at time.Time) string {
	return fmt.Sprintf("sancella-dashboard-%s.%s", at.Format(exportDateLayout), format)
}
