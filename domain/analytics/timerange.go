// Package analytics turns task and intervention collections into the figures,
// filtered views and chart series shown on the dashboard. Every function is a
// pure transform of its arguments; the reference time is always passed in.
package analytics

import "time"

// RangeLabel is the dashboard time bucket vocabulary
type RangeLabel string

const (
	RangeAll       RangeLabel = "all"
	RangeToday     RangeLabel = "today"
	RangeYesterday RangeLabel = "yesterday"
	RangeThisWeek  RangeLabel = "this-week"
	RangeThisMonth RangeLabel = "this-month"
	RangeLastMonth RangeLabel = "last-month"
	RangeThisYear  RangeLabel = "this-year"
)

// Period is the task-list filter vocabulary. It overlaps RangeLabel but is a
// distinct set; the two are never converted into each other.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// boundaries are the reference instants derived from "now"
type boundaries struct {
	startOfToday     time.Time
	startOfYesterday time.Time
	startOfWeek      time.Time
	startOfMonth     time.Time
	startOfLastMonth time.Time
	startOfYear      time.Time
}

// boundariesAt computes the boundaries in now's location. Weeks start on
// Sunday (weekday 0).
func boundariesAt(now time.Time) boundaries {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return boundaries{
		startOfToday:     today,
		startOfYesterday: time.Date(y, m, d-1, 0, 0, 0, 0, loc),
		startOfWeek:      time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc),
		startOfMonth:     time.Date(y, m, 1, 0, 0, 0, 0, loc),
		startOfLastMonth: time.Date(y, m-1, 1, 0, 0, 0, 0, loc),
		startOfYear:      time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
	}
}

// IsWithinRange reports whether ts falls in the dashboard bucket r.
// A missing timestamp, an empty label, "all" and unknown labels all match.
func IsWithinRange(ts *time.Time, r RangeLabel, now time.Time) bool {
	if ts == nil || r == "" || r == RangeAll {
		return true
	}
	b := boundariesAt(now)
	t := *ts

	switch r {
	case RangeToday:
		return !t.Before(b.startOfToday)
	case RangeYesterday:
		return !t.Before(b.startOfYesterday) && t.Before(b.startOfToday)
	case RangeThisWeek:
		return !t.Before(b.startOfWeek)
	case RangeThisMonth:
		return !t.Before(b.startOfMonth)
	case RangeLastMonth:
		return !t.Before(b.startOfLastMonth) && t.Before(b.startOfMonth)
	case RangeThisYear:
		return !t.Before(b.startOfYear)
	default:
		return true
	}
}

// IsWithinPeriod is the task-list counterpart of IsWithinRange.
// PeriodQuarter has no branch and matches everything.
func IsWithinPeriod(ts *time.Time, p Period, now time.Time) bool {
	if ts == nil || p == "" || p == PeriodAll {
		return true
	}
	b := boundariesAt(now)
	t := *ts

	switch p {
	case PeriodToday:
		return !t.Before(b.startOfToday)
	case PeriodWeek:
		return !t.Before(b.startOfWeek)
	case PeriodMonth:
		return !t.Before(b.startOfMonth)
	case PeriodYear:
		return !t.Before(b.startOfYear)
	default:
		return true
	}
}

// IsKnown reports whether r belongs to the dashboard vocabulary
func (r RangeLabel) IsKnown() bool {
	switch r {
	case RangeAll, RangeToday, RangeYesterday, RangeThisWeek, RangeThisMonth, RangeLastMonth, RangeThisYear:
		return true
	}
	return false
}

// IsKnown reports whether p belongs to the task-list vocabulary
func (p Period) IsKnown() bool {
	switch p {
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}
