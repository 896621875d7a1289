package types

import (
	"math"
	"time"
)

// SubmissionStatus is the display state of a submission as derived from
// its stored fields and the current time.
type SubmissionStatus int

const (
	StatusPending SubmissionStatus = iota
	StatusGraded
	StatusContentMismatched
	StatusOverdue
)

func (status SubmissionStatus) String() string {
	switch status {
	case StatusGraded:
		return "graded"
	case StatusContentMismatched:
		return "mismatched"
	case StatusOverdue:
		return "overdue"
	default:
		return "pending"
	}
}

// HasScore reports whether the submission carries a usable numeric score.
func (sub *Submission) HasScore() bool {
	return sub.Score != nil && !math.IsNaN(*sub.Score) && !math.IsInf(*sub.Score, 0)
}

// DeriveStatusAt derives the display state of a submission using the full
// clock time for the overdue check: the assignment is overdue once the
// current instant passes midnight at the start of the due date.
func DeriveStatusAt(sub *Submission, asst *Assignment, now time.Time) SubmissionStatus {
	return deriveStatus(sub, asst, now, false)
}

// DeriveStatusOn derives the display state of a submission comparing dates
// only: the assignment is overdue once today's date is past the due date,
// regardless of the time of day.
func DeriveStatusOn(sub *Submission, asst *Assignment, now time.Time) SubmissionStatus {
	return deriveStatus(sub, asst, now, true)
}

func deriveStatus(sub *Submission, asst *Assignment, now time.Time, dateOnly bool) SubmissionStatus {
	if sub.Status == StatusFieldGraded && sub.HasScore() {
		return StatusGraded
	}
	if sub.ContentMismatched {
		return StatusContentMismatched
	}
	if asst != nil && overdue(asst.DueDate, now, dateOnly) {
		return StatusOverdue
	}
	return StatusPending
}

func overdue(dueDate string, now time.Time, dateOnly bool) bool {
	due, err := ParseDate(dueDate)
	if err != nil {
		// an unparseable due date never marks a submission overdue
		return false
	}
	if dateOnly {
		now = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return now.After(due)
}
