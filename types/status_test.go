package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func score(f float64) *float64 { return &f }

func TestHasScore(t *testing.T) {
	sub := &Submission{}
	assert.False(t, sub.HasScore())

	sub.Score = score(0)
	assert.True(t, sub.HasScore())

	sub.Score = score(math.NaN())
	assert.False(t, sub.HasScore())

	sub.Score = score(math.Inf(1))
	assert.False(t, sub.HasScore())
}

func TestDeriveStatus(t *testing.T) {
	asst := &Assignment{ID: "a1", DueDate: "2026-03-10"}
	beforeDue := time.Date(2026, 3, 9, 22, 0, 0, 0, time.Local)
	onDueDay := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	afterDue := time.Date(2026, 3, 11, 8, 0, 0, 0, time.Local)

	pending := &Submission{Status: StatusFieldPending}

	// clock-time check: overdue as soon as the due date begins
	assert.Equal(t, StatusPending, DeriveStatusAt(pending, asst, beforeDue))
	assert.Equal(t, StatusOverdue, DeriveStatusAt(pending, asst, onDueDay))
	assert.Equal(t, StatusOverdue, DeriveStatusAt(pending, asst, afterDue))

	// date-only check: the due day itself is still on time
	assert.Equal(t, StatusPending, DeriveStatusOn(pending, asst, beforeDue))
	assert.Equal(t, StatusPending, DeriveStatusOn(pending, asst, onDueDay))
	assert.Equal(t, StatusOverdue, DeriveStatusOn(pending, asst, afterDue))
}

func TestDeriveStatusGradedWinsOverOverdue(t *testing.T) {
	asst := &Assignment{ID: "a1", DueDate: "2026-03-10"}
	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)

	graded := &Submission{Status: StatusFieldGraded, Score: score(9)}
	assert.Equal(t, StatusGraded, DeriveStatusAt(graded, asst, late))

	// a graded status without a usable score does not count as graded
	noScore := &Submission{Status: StatusFieldGraded}
	assert.Equal(t, StatusOverdue, DeriveStatusAt(noScore, asst, late))
}

func TestDeriveStatusMismatch(t *testing.T) {
	asst := &Assignment{ID: "a1", DueDate: "2026-03-10"}
	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)

	// a mismatch outranks overdue
	sub := &Submission{Status: StatusFieldPending, ContentMismatched: true}
	assert.Equal(t, StatusContentMismatched, DeriveStatusAt(sub, asst, late))

	// but a grade outranks the mismatch flag
	sub.Status = StatusFieldGraded
	sub.Score = score(7)
	assert.Equal(t, StatusGraded, DeriveStatusAt(sub, asst, late))
}

func TestDeriveStatusBadDueDate(t *testing.T) {
	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)
	pending := &Submission{Status: StatusFieldPending}

	// an unparseable or missing due date never marks a submission overdue
	assert.Equal(t, StatusPending, DeriveStatusAt(pending, &Assignment{DueDate: "soon"}, late))
	assert.Equal(t, StatusPending, DeriveStatusAt(pending, nil, late))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-3))
	assert.Equal(t, 10.0, ClampScore(11.2))
	assert.Equal(t, 7.5, ClampScore(7.5))
}

func TestScoreColor(t *testing.T) {
	assert.Equal(t, "green", ScoreColor(8.5))
	assert.Equal(t, "yellow", ScoreColor(6.5))
	assert.Equal(t, "red", ScoreColor(6.4))
}
