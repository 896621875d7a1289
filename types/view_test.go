package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewFixture() ([]*Submission, []*Assignment, []*ClassGroup) {
	classes := []*ClassGroup{
		{ID: "c1", Name: "Beginning Conversation"},
		{ID: "c2", Name: "Advanced Conversation"},
	}
	assignments := []*Assignment{
		{ID: "a1", ClassID: "c1", Title: "My hobbies", AssignedDate: "2026-01-05", DueDate: "2026-01-12"},
		{ID: "a2", ClassID: "c1", Title: "My last vacation", AssignedDate: "2026-02-01", DueDate: "2026-02-08"},
		{ID: "a3", ClassID: "c2", Title: "Weekend plans", AssignedDate: "2026-01-20", DueDate: "2026-01-27"},
	}
	subs := []*Submission{
		{ID: "s1", StudentName: "An", AssignmentID: "a1", ClassID: "c1", SubmissionFileName: "an.mp4", Status: StatusFieldGraded, Score: score(8)},
		{ID: "s2", StudentName: "Binh", AssignmentID: "a2", ClassID: "c1", SubmissionFileName: "binh.mp4", Status: StatusFieldPending},
		{ID: "s3", StudentName: "Chi", AssignmentID: "a3", ClassID: "c2", SubmissionFileName: "chi.mp4", Status: StatusFieldPending},
		{ID: "s4", StudentName: "Duc", AssignmentID: "gone", ClassID: "c1", SubmissionFileName: "duc.mp4", Status: StatusFieldPending},
	}
	return subs, assignments, classes
}

func TestViewSubmissionsOrphansExcluded(t *testing.T) {
	subs, assignments, classes := viewFixture()
	page := ViewSubmissions(subs, assignments, classes, SubmissionFilter{}, 1, 10)

	// s4 references a deleted assignment and is dropped before paging
	assert.Equal(t, 3, page.Total)
	for _, sub := range page.Items {
		assert.NotEqual(t, "s4", sub.ID)
	}
}

func TestViewSubmissionsNewestSort(t *testing.T) {
	subs, assignments, classes := viewFixture()
	page := ViewSubmissions(subs, assignments, classes, SubmissionFilter{SortKey: SortNewest}, 1, 10)

	require.Len(t, page.Items, 3)
	// pending submissions come first, newest assigned date first,
	// with the graded submission last
	assert.Equal(t, "s2", page.Items[0].ID)
	assert.Equal(t, "s3", page.Items[1].ID)
	assert.Equal(t, "s1", page.Items[2].ID)
}

func TestViewSubmissionsSortKeys(t *testing.T) {
	subs, assignments, classes := viewFixture()

	oldest := ViewSubmissions(subs, assignments, classes, SubmissionFilter{SortKey: SortOldest}, 1, 10)
	require.Len(t, oldest.Items, 3)
	assert.Equal(t, "s1", oldest.Items[0].ID)

	byDue := ViewSubmissions(subs, assignments, classes, SubmissionFilter{SortKey: SortDueDate}, 1, 10)
	require.Len(t, byDue.Items, 3)
	assert.Equal(t, "s1", byDue.Items[0].ID)
	assert.Equal(t, "s3", byDue.Items[1].ID)
	assert.Equal(t, "s2", byDue.Items[2].ID)
}

func TestViewSubmissionsFilters(t *testing.T) {
	subs, assignments, classes := viewFixture()

	byClass := ViewSubmissions(subs, assignments, classes, SubmissionFilter{ClassID: "c2"}, 1, 10)
	require.Len(t, byClass.Items, 1)
	assert.Equal(t, "s3", byClass.Items[0].ID)

	// "all" leaves the filter off
	all := ViewSubmissions(subs, assignments, classes, SubmissionFilter{ClassID: "all", Status: "all"}, 1, 10)
	assert.Equal(t, 3, all.Total)

	byStatus := ViewSubmissions(subs, assignments, classes, SubmissionFilter{Status: StatusFieldGraded}, 1, 10)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, "s1", byStatus.Items[0].ID)

	// search matches assignment titles, case-insensitively
	byTitle := ViewSubmissions(subs, assignments, classes, SubmissionFilter{Search: "VACATION"}, 1, 10)
	require.Len(t, byTitle.Items, 1)
	assert.Equal(t, "s2", byTitle.Items[0].ID)

	// filters are conjunctive
	none := ViewSubmissions(subs, assignments, classes, SubmissionFilter{ClassID: "c2", Status: StatusFieldGraded}, 1, 10)
	assert.Equal(t, 0, none.Total)
}

func TestViewSubmissionsPaging(t *testing.T) {
	classes := []*ClassGroup{{ID: "c1", Name: "One"}}
	assignments := []*Assignment{{ID: "a1", ClassID: "c1", Title: "Topic", AssignedDate: "2026-01-05", DueDate: "2026-01-12"}}
	subs := []*Submission{}
	for i := 0; i < 35; i++ {
		subs = append(subs, &Submission{
			ID:           fmt.Sprintf("s%02d", i),
			StudentName:  fmt.Sprintf("Student %02d", i),
			AssignmentID: "a1",
			ClassID:      "c1",
			Status:       StatusFieldPending,
		})
	}

	first := ViewSubmissions(subs, assignments, classes, SubmissionFilter{}, 1, SubmissionsPerPage)
	assert.Equal(t, 35, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	assert.Len(t, first.Items, 15)

	last := ViewSubmissions(subs, assignments, classes, SubmissionFilter{}, 3, SubmissionsPerPage)
	assert.Len(t, last.Items, 5)

	// out-of-range pages clamp instead of returning an empty page
	clamped := ViewSubmissions(subs, assignments, classes, SubmissionFilter{}, 99, SubmissionsPerPage)
	assert.Equal(t, 3, clamped.Page)
	assert.Len(t, clamped.Items, 5)

	low := ViewSubmissions(subs, assignments, classes, SubmissionFilter{}, -1, SubmissionsPerPage)
	assert.Equal(t, 1, low.Page)
}

func TestSearchAssignments(t *testing.T) {
	_, assignments, _ := viewFixture()

	found := SearchAssignments(assignments, "my")
	require.Len(t, found, 2)
	// newest first
	assert.Equal(t, "a2", found[0].ID)
	assert.Equal(t, "a1", found[1].ID)

	all := SearchAssignments(assignments, "")
	assert.Len(t, all, 3)
}

func TestOwnSubmissions(t *testing.T) {
	subs, assignments, _ := viewFixture()
	subs = append(subs, &Submission{ID: "s5", StudentName: "an", AssignmentID: "a2", ClassID: "c1", Status: StatusFieldPending})

	// the name match is case-insensitive and results are newest first
	own := OwnSubmissions(subs, assignments, "AN")
	require.Len(t, own, 2)
	assert.Equal(t, "s5", own[0].ID)
	assert.Equal(t, "s1", own[1].ID)

	assert.Empty(t, OwnSubmissions(subs, assignments, ""))
}
