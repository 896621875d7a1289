package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateFormat is the wire format for assigned and due dates.
	DateFormat = "2006-01-02"

	StatusFieldPending = "pending"
	StatusFieldGraded  = "graded"

	// SampleTranscriptSeparator joins the transcripts of multiple sample
	// videos into a single assignment transcript.
	SampleTranscriptSeparator = "\n\n---\n\n"

	CookieName = "speakgrinder"
)

// ClassGroup represents a single class roster taught by a teacher.
type ClassGroup struct {
	ID   string `json:"id" meddler:"id"`
	Name string `json:"name" meddler:"name"`
}

// Assignment represents a speaking task issued to a class, optionally
// with one or more sample videos recorded by the teacher.
// A freestyle assignment lets the student pick any topic, so no
// sample-transcript comparison applies.
type Assignment struct {
	ID                    string   `json:"id" meddler:"id"`
	ClassID               string   `json:"classId" meddler:"class_id"`
	Title                 string   `json:"title" meddler:"title"`
	AssignedDate          string   `json:"date" meddler:"assigned_date"`
	DueDate               string   `json:"dueDate" meddler:"due_date"`
	IsFreestyle           bool     `json:"isFreestyle,omitempty" meddler:"is_freestyle"`
	SampleVideoURLs       []string `json:"sampleVideoUrls,omitempty" meddler:"sample_video_urls,json"`
	SampleVideoTranscript string   `json:"sampleVideoTranscript,omitempty" meddler:"sample_video_transcript,zeroisnull"`
}

// Submission represents a student's recorded response to an assignment.
// Score and Feedback are only present once the submission has been graded;
// a mismatch verdict from the similarity check sets ContentMismatched and
// forces the status back to pending until a teacher overrides it.
type Submission struct {
	ID                 string   `json:"id" meddler:"id"`
	StudentName        string   `json:"studentName" meddler:"student_name"`
	AssignmentID       string   `json:"assignmentId" meddler:"assignment_id"`
	ClassID            string   `json:"classId" meddler:"class_id"`
	SubmissionFileURL  string   `json:"submissionFileUrl" meddler:"submission_file_url"`
	SubmissionFileName string   `json:"submissionFileName" meddler:"submission_file_name"`
	Transcript         string   `json:"transcript,omitempty" meddler:"transcript,zeroisnull"`
	Score              *float64 `json:"score,omitempty" meddler:"score"`
	Feedback           string   `json:"feedback,omitempty" meddler:"feedback,zeroisnull"`
	Status             string   `json:"status" meddler:"status"`
	ContentMismatched  bool     `json:"contentMismatched,omitempty" meddler:"content_mismatched"`
}

// Teacher represents a teacher login account. The password field holds
// either a bcrypt hash (rows written by this system) or a cleartext
// password (rows imported from an existing sheet).
type Teacher struct {
	ID       string `json:"id" meddler:"id"`
	Username string `json:"username" meddler:"username"`
	Password string `json:"password,omitempty" meddler:"password"`
}

func (class *ClassGroup) Normalize() error {
	class.Name = strings.TrimSpace(class.Name)
	if class.Name == "" {
		return fmt.Errorf("class name cannot be empty")
	}
	return nil
}

func (asst *Assignment) Normalize() error {
	asst.Title = strings.TrimSpace(asst.Title)
	if asst.Title == "" {
		return fmt.Errorf("assignment title cannot be empty")
	}
	if asst.ClassID == "" {
		return fmt.Errorf("assignment must belong to a class")
	}
	if _, err := ParseDate(asst.AssignedDate); err != nil {
		return fmt.Errorf("assigned date %q is invalid: %v", asst.AssignedDate, err)
	}
	if _, err := ParseDate(asst.DueDate); err != nil {
		return fmt.Errorf("due date %q is invalid: %v", asst.DueDate, err)
	}
	asst.SampleVideoTranscript = strings.TrimSpace(asst.SampleVideoTranscript)
	if len(asst.SampleVideoURLs) == 0 {
		asst.SampleVideoURLs = []string{}
	}
	return nil
}

func (sub *Submission) Normalize() error {
	sub.StudentName = strings.TrimSpace(sub.StudentName)
	if sub.StudentName == "" {
		return fmt.Errorf("submission must include the student's name")
	}
	if sub.AssignmentID == "" {
		return fmt.Errorf("submission must reference an assignment")
	}
	if sub.ClassID == "" {
		return fmt.Errorf("submission must reference a class")
	}
	if sub.Status != StatusFieldPending && sub.Status != StatusFieldGraded {
		return fmt.Errorf("submission status must be %s or %s, not %q",
			StatusFieldPending, StatusFieldGraded, sub.Status)
	}
	if sub.Score != nil && (*sub.Score < 0.0 || *sub.Score > 10.0) {
		return fmt.Errorf("submission score must be between 0 and 10")
	}
	return nil
}

func (teacher *Teacher) Normalize() error {
	teacher.Username = strings.TrimSpace(teacher.Username)
	if teacher.Username == "" {
		return fmt.Errorf("teacher username cannot be empty")
	}
	if teacher.Password == "" {
		return fmt.Errorf("teacher password cannot be empty")
	}
	return nil
}

// ParseDate parses a wire-format date in the server's local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, strings.TrimSpace(s), time.Local)
}

// ClampScore forces a generated score into the legal [0,10] range.
func ClampScore(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 10.0 {
		return 10.0
	}
	return score
}

// ScoreColor buckets a score for display: green for 8.5 and up, yellow
// for 6.5 and up, red below that.
func ScoreColor(score float64) string {
	switch {
	case score >= 8.5:
		return "green"
	case score >= 6.5:
		return "yellow"
	default:
		return "red"
	}
}
