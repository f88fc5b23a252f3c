package validator

import (
	"strings"

	"github.com/sancella/sancella/domain"
	"github.com/sancella/sancella/domain/analytics"
)

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidateRange accepts an empty value or a dashboard range label
func ValidateRange(value string) bool {
	return value == "" || analytics.RangeLabel(value).IsKnown()
}

// ValidatePeriod accepts an empty value or a task-list period
func ValidatePeriod(value string) bool {
	return value == "" || analytics.Period(value).IsKnown()
}

// ValidateStatusFilter accepts an empty value, "all" or a stored task status
func ValidateStatusFilter(value string) bool {
	switch domain.TaskStatus(value) {
	case "", analytics.FilterAll, domain.TaskStatusPending, domain.TaskStatusInProgress, domain.TaskStatusCompleted:
		return true
	}
	return false
}

// ValidateSearch limits free-text search length
func ValidateSearch(value string) bool {
	return len(value) <= MaxSearchLength
}

const MaxSearchLength = 200
