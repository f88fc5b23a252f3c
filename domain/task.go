package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TaskStatus represents the status of a task (ticket)
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// Display fallbacks
const (
	UntitledTask  = "Untitled"
	NoProjectName = "N/A"
)

// ID is a record identifier. The backend serializes ids either as JSON numbers
// or strings; both decode to the same value.
type ID string

// UnmarshalJSON accepts a JSON string, number or null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Project is the asset (machine) a product belongs to
type Project struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Product is an item attached to a task
type Product struct {
	ID      ID       `json:"id"`
	Name    string   `json:"name"`
	Project *Project `json:"project,omitempty"`
}

// Task represents a unit of maintenance work
type Task struct {
	ID             ID           `json:"id"`
	Name           string       `json:"name"`
	Description    *string      `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	ComputedStatus *TaskStatus  `json:"computed_status,omitempty"`
	Priority       TaskPriority `json:"priority"`
	CreatedAt      *time.Time   `json:"created_at,omitempty"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	AssignedTo     *ID          `json:"assigned_to,omitempty"`
	Products       []Product    `json:"products"`
}

// EffectiveStatus returns the computed status whenever one is present, even
// an empty one, and the stored status otherwise.
func (t Task) EffectiveStatus() TaskStatus {
	if t.ComputedStatus != nil {
		return *t.ComputedStatus
	}
	return t.Status
}

// Project returns the project of the task's first product
func (t Task) Project() (*Project, bool) {
	if len(t.Products) == 0 || t.Products[0].Project == nil {
		return nil, false
	}
	return t.Products[0].Project, true
}

// ProjectName returns the derived project name, or "N/A" when the task has none
func (t Task) ProjectName() string {
	if p, ok := t.Project(); ok && p.Name != "" {
		return p.Name
	}
	return NoProjectName
}

// HasProducts reports whether at least one product is attached
func (t Task) HasProducts() bool {
	return len(t.Products) > 0
}

// IsAssignedTo reports whether the task is assigned to the given user
func (t Task) IsAssignedTo(userID string) bool {
	return userID != "" && t.AssignedTo != nil && string(*t.AssignedTo) == userID
}

// FinishedBeforeDue reports a completion timestamp on or before the due date.
// Both dates must be present; status is left to the caller.
func (t Task) FinishedBeforeDue() bool {
	if t.CompletedAt == nil || t.DueDate == nil {
		return false
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// FinishedAfterDue reports a completion timestamp strictly after the due date
func (t Task) FinishedAfterDue() bool {
	if t.CompletedAt == nil || t.DueDate == nil {
		return false
	}
	return t.CompletedAt.After(*t.DueDate)
}

// WithDefaults returns a copy with fallbacks substituted for missing fields.
// The receiver is left untouched.
func (t Task) WithDefaults() Task {
	out := t
	if strings.TrimSpace(out.Name) == "" {
		out.Name = UntitledTask
	}
	if out.Status == "" {
		out.Status = TaskStatusPending
	}
	if out.Priority == "" {
		out.Priority = TaskPriorityLow
	}
	if out.Products == nil {
		out.Products = []Product{}
	} else {
		out.Products = append([]Product(nil), t.Products...)
	}
	return out
}

// UnmarshalJSON decodes a task as serialized by the backend, tolerating
// numeric ids, null fields and several timestamp layouts.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             ID           `json:"id"`
		Name           string       `json:"name"`
		Description    *string      `json:"description"`
		Status         TaskStatus   `json:"status"`
		ComputedStatus *TaskStatus  `json:"computed_status"`
		Priority       TaskPriority `json:"priority"`
		CreatedAt      *Timestamp   `json:"created_at"`
		DueDate        *Timestamp   `json:"due_date"`
		CompletedAt    *Timestamp   `json:"completed_at"`
		AssignedTo     *ID          `json:"assigned_to"`
		Products       []Product    `json:"products"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{
		ID:             raw.ID,
		Name:           raw.Name,
		Description:    raw.Description,
		Status:         raw.Status,
		ComputedStatus: raw.ComputedStatus,
		Priority:       raw.Priority,
		CreatedAt:      raw.CreatedAt.Ptr(),
		DueDate:        raw.DueDate.Ptr(),
		CompletedAt:    raw.CompletedAt.Ptr(),
		AssignedTo:     raw.AssignedTo,
		Products:       raw.Products,
	}
	if t.AssignedTo != nil && *t.AssignedTo == "" {
		t.AssignedTo = nil
	}
	return nil
}

// Timestamp decodes the date formats emitted by the backend
type Timestamp struct {
	time.Time
}

// Layouts without a zone are read in host local time
var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02", true},
}

// UnmarshalJSON parses a JSON string timestamp; null and "" leave it zero
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		// unix seconds
		secs, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return ErrInvalidTimestamp
		}
		ts.Time = time.Unix(secs, 0)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, l := range timestampLayouts {
		var (
			parsed time.Time
			err    error
		)
		if l.local {
			parsed, err = time.ParseInLocation(l.layout, s, time.Local)
		} else {
			parsed, err = time.Parse(l.layout, s)
		}
		if err == nil {
			ts.Time = parsed
			return nil
		}
	}
	return ErrInvalidTimestamp
}

// Ptr returns nil for a nil or zero timestamp
func (ts *Timestamp) Ptr() *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
