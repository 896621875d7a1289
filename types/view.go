package types

import (
	"sort"
	"strings"
)

// SubmissionsPerPage is the fixed page size of the grading screen.
const SubmissionsPerPage = 15

const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortDueDate = "dueDate"
)

// SubmissionFilter selects and orders a submission list for display.
// All filters are conjunctive. An empty or "all" value leaves a filter off.
type SubmissionFilter struct {
	Search  string `json:"search"`
	ClassID string `json:"classId"`
	Status  string `json:"status"`
	SortKey string `json:"sort"`
}

// SubmissionPage is one page of a filtered, sorted submission list.
type SubmissionPage struct {
	Items      []*Submission `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`
}

// ViewSubmissions applies the filter, sorts the survivors with a stable
// sort, and returns the requested page. Submissions whose assignment or
// class no longer exists are skipped rather than treated as an error.
// The page number is clamped to [1, totalPages] so a shrinking result set
// never strands the caller on an empty page.
func ViewSubmissions(subs []*Submission, assignments []*Assignment, classes []*ClassGroup, filter SubmissionFilter, page, pageSize int) *SubmissionPage {
	if pageSize < 1 {
		pageSize = SubmissionsPerPage
	}

	asstByID := make(map[string]*Assignment)
	for _, asst := range assignments {
		asstByID[asst.ID] = asst
	}
	classByID := make(map[string]*ClassGroup)
	for _, class := range classes {
		classByID[class.ID] = class
	}

	query := strings.ToLower(strings.TrimSpace(filter.Search))
	list := []*Submission{}
	for _, sub := range subs {
		asst := asstByID[sub.AssignmentID]
		if asst == nil || classByID[sub.ClassID] == nil {
			continue
		}
		if filter.ClassID != "" && filter.ClassID != "all" && sub.ClassID != filter.ClassID {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && sub.Status != filter.Status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(sub.StudentName), query) &&
			!strings.Contains(strings.ToLower(sub.SubmissionFileName), query) &&
			!strings.Contains(strings.ToLower(asst.Title), query) {
			continue
		}
		list = append(list, sub)
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := asstByID[list[i].AssignmentID], asstByID[list[j].AssignmentID]
		switch filter.SortKey {
		case SortDueDate:
			return a.DueDate < b.DueDate
		case SortOldest:
			return a.AssignedDate < b.AssignedDate
		default:
			// pending submissions first, then most recently assigned
			ra, rb := pendingRank(list[i]), pendingRank(list[j])
			if ra != rb {
				return ra < rb
			}
			return a.AssignedDate > b.AssignedDate
		}
	})

	total := len(list)
	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &SubmissionPage{
		Items:      list[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}

func pendingRank(sub *Submission) int {
	if sub.Status == StatusFieldPending {
		return 0
	}
	return 1
}

// SearchAssignments filters assignments by a case-insensitive title
// substring match and orders them newest first by assigned date.
func SearchAssignments(assignments []*Assignment, query string) []*Assignment {
	query = strings.ToLower(strings.TrimSpace(query))
	list := []*Assignment{}
	for _, asst := range assignments {
		if query == "" || strings.Contains(strings.ToLower(asst.Title), query) {
			list = append(list, asst)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AssignedDate > list[j].AssignedDate
	})
	return list
}

// OwnSubmissions lists one student's submissions, most recently assigned
// first. The name comparison is case-insensitive, matching the submission
// screen's lookup behavior.
func OwnSubmissions(subs []*Submission, assignments []*Assignment, studentName string) []*Submission {
	studentName = strings.ToLower(strings.TrimSpace(studentName))
	if studentName == "" {
		return []*Submission{}
	}
	asstByID := make(map[string]*Assignment)
	for _, asst := range assignments {
		asstByID[asst.ID] = asst
	}
	list := []*Submission{}
	for _, sub := range subs {
		if strings.ToLower(sub.StudentName) == studentName {
			list = append(list, sub)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := asstByID[list[i].AssignmentID], asstByID[list[j].AssignmentID]
		if a == nil || b == nil {
			return false
		}
		return a.AssignedDate > b.AssignedDate
	})
	return list
}
