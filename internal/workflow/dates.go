// Package workflow holds the rules tied to the task status workflow: which
// dates a status change stamps, and how tasks fall into board columns.
package workflow

import (
	"time"

	"tasktracker/internal/models"
)

// Dates are the workflow-derived stamps of a task.
type Dates struct {
	Start models.NullTime
	End   models.NullTime
}

// Stamp returns the dates after a task moves to next. A start date is set the
// first time the task enters any started stage and an end date the first
// time it reaches Prod Deployed. Existing stamps are never overwritten, so
// moving backward or re-entering a stage leaves them alone.
func Stamp(next models.Status, dates Dates, now time.Time) Dates {
	if next.IsStarted() && !dates.Start.Valid {
		dates.Start = models.NewNullTime(now)
	}
	if next.IsDone() && !dates.End.Valid {
		dates.End = models.NewNullTime(now)
	}
	return dates
}

// StampNew applies Stamp to a task created directly in status s.
func StampNew(s models.Status, now time.Time) Dates {
	return Stamp(s, Dates{}, now)
}

// EndDateEditable reports whether the edit form lets the user change the end
// date. Only Prod Deployed tasks have an editable end date.
func EndDateEditable(s models.Status) bool {
	return s.IsDone()
}
