package domain

import (
	"encoding/json"
	"time"
)

// ResponseTimeStats holds response time figures for a project, in hours
type ResponseTimeStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// InterventionSummary is the pre-aggregated intervention count for one project.
// Approved + Refused + Pending is not guaranteed to equal Total.
type InterventionSummary struct {
	Project      string             `json:"project"`
	Total        int                `json:"total"`
	Approved     int                `json:"approved"`
	Refused      int                `json:"refused"`
	Pending      int                `json:"pending"`
	ResponseTime *ResponseTimeStats `json:"response_time,omitempty"`
	CreatedAt    *time.Time         `json:"created_at,omitempty"`
}

// UnmarshalJSON accepts the backend field names and date formats
func (s *InterventionSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Project      string             `json:"project"`
		Total        int                `json:"total"`
		Approved     int                `json:"approved"`
		Refused      int                `json:"refused"`
		Pending      int                `json:"pending"`
		ResponseTime *ResponseTimeStats `json:"response_time"`
		CreatedAt    *Timestamp         `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = InterventionSummary{
		Project:      raw.Project,
		Total:        raw.Total,
		Approved:     raw.Approved,
		Refused:      raw.Refused,
		Pending:      raw.Pending,
		ResponseTime: raw.ResponseTime,
		CreatedAt:    raw.CreatedAt.Ptr(),
	}
	return nil
}
