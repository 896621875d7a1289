package main

import (
	. "github.com/hongclass/speakgrinder/types"
)

// FallbackDataset returns the built-in starter data used when the
// remote sheets are unreachable or still empty. It matches the demo
// data the sheets are seeded with, including one teacher account
// (mshong / changeme, stored cleartext the way imported sheet rows
// are) so the system is usable out of the box.
func FallbackDataset() ([]*ClassGroup, []*Assignment, []*Submission, []*Teacher) {
	score := 8.5

	classes := []*ClassGroup{
		{ID: "c1", Name: "Tiếng Anh Giao Tiếp - Cấp 1"},
		{ID: "c2", Name: "Hội thoại Nâng cao"},
	}

	assignments := []*Assignment{
		{
			ID:              "a1",
			ClassID:         "c1",
			Title:           "Giới thiệu sở thích của bạn",
			AssignedDate:    "2024-07-19",
			DueDate:         "2024-07-26",
			SampleVideoURLs: []string{},
		},
		{
			ID:              "a2",
			ClassID:         "c2",
			Title:           "Nói về kế hoạch cuối tuần",
			AssignedDate:    "2024-08-03",
			DueDate:         "2024-08-10",
			SampleVideoURLs: []string{},
		},
	}

	submissions := []*Submission{
		{
			ID:                 "s1",
			StudentName:        "Nguyễn Văn An",
			AssignmentID:       "a1",
			ClassID:            "c1",
			SubmissionFileURL:  "https://example.com/your-record.mp4",
			SubmissionFileName: "your-record.mp4",
			Score:              &score,
			Feedback:           "Phát âm tốt, cần chậm rãi hơn.",
			Status:             StatusFieldGraded,
		},
	}

	teachers := []*Teacher{
		{ID: "t1", Username: "mshong", Password: "changeme"},
	}

	return classes, assignments, submissions, teachers
}
