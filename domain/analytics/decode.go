package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sancella/sancella/domain"
)

// Severity grades a diagnostic
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic describes a record that was skipped or a computation that fell
// back to its zero result.
type Diagnostic struct {
	Stage    string   `json:"stage"`
	Index    int      `json:"index"`
	RecordID string   `json:"record_id,omitempty"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

func (d Diagnostic) String() string {
	if d.RecordID != "" {
		return fmt.Sprintf("%s[%d] (%s): %s", d.Stage, d.Index, d.RecordID, d.Reason)
	}
	return fmt.Sprintf("%s[%d]: %s", d.Stage, d.Index, d.Reason)
}

// Decode stages
const (
	StageDecodeTasks         = "decode_tasks"
	StageDecodeInterventions = "decode_interventions"
	StageMetrics             = "metrics"
)

var nullLiteral = []byte("null")

// DecodeTasks decodes a JSON array of tasks record by record. A payload that is
// not an array yields no tasks; individual records that are null, not objects,
// badly typed or lack an id are skipped. Each skip produces one diagnostic.
// Decoded tasks have their display defaults applied.
func DecodeTasks(payload []byte) ([]domain.Task, []Diagnostic) {
	items, diag, ok := splitArray(payload, StageDecodeTasks)
	if !ok {
		return []domain.Task{}, diag
	}

	tasks := make([]domain.Task, 0, len(items))
	var diags []Diagnostic
	for i, item := range items {
		if !isObject(item) {
			diags = append(diags, skip(StageDecodeTasks, i, "", domain.ErrMalformedRecord.Error()))
			continue
		}
		var t domain.Task
		if err := json.Unmarshal(item, &t); err != nil {
			diags = append(diags, skip(StageDecodeTasks, i, peekID(item), err.Error()))
			continue
		}
		if t.ID == "" {
			diags = append(diags, skip(StageDecodeTasks, i, "", domain.ErrMissingTaskID.Error()))
			continue
		}
		tasks = append(tasks, t.WithDefaults())
	}
	return tasks, diags
}

// DecodeInterventions decodes a JSON array of intervention summaries with the
// same skip rules as DecodeTasks.
func DecodeInterventions(payload []byte) ([]domain.InterventionSummary, []Diagnostic) {
	items, diag, ok := splitArray(payload, StageDecodeInterventions)
	if !ok {
		return []domain.InterventionSummary{}, diag
	}

	out := make([]domain.InterventionSummary, 0, len(items))
	var diags []Diagnostic
	for i, item := range items {
		if !isObject(item) {
			diags = append(diags, skip(StageDecodeInterventions, i, "", domain.ErrMalformedRecord.Error()))
			continue
		}
		var s domain.InterventionSummary
		if err := json.Unmarshal(item, &s); err != nil {
			diags = append(diags, skip(StageDecodeInterventions, i, "", err.Error()))
			continue
		}
		out = append(out, s)
	}
	return out, diags
}

// splitArray returns the raw elements of a JSON array. An absent or null
// payload is an empty collection, anything else that is not an array is
// reported.
func splitArray(payload []byte, stage string) ([]json.RawMessage, []Diagnostic, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral) {
		return nil, nil, false
	}
	var items []json.RawMessage
	if trimmed[0] != '[' {
		return nil, []Diagnostic{skip(stage, -1, "", "payload is not a list")}, false
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, []Diagnostic{skip(stage, -1, "", err.Error())}, false
	}
	return items, nil, true
}

// peekID extracts the id of a record that failed to decode, if readable
func peekID(item json.RawMessage) string {
	var head struct {
		ID domain.ID `json:"id"`
	}
	if err := json.Unmarshal(item, &head); err != nil {
		return ""
	}
	return string(head.ID)
}

func isObject(item json.RawMessage) bool {
	trimmed := bytes.TrimSpace(item)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func skip(stage string, index int, id, reason string) Diagnostic {
	return Diagnostic{
		Stage:    stage,
		Index:    index,
		RecordID: id,
		Reason:   reason,
		Severity: SeverityWarning,
	}
}
