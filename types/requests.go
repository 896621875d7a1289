package types

import "time"

// MediaFile is an uploaded recording as it travels over the wire.
// Data is the base64-encoded file content.
type MediaFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AssignmentUpload is the body of an assignment create/update call:
// the assignment fields plus any sample videos to transcribe.
type AssignmentUpload struct {
	Assignment
	SampleVideos []*MediaFile `json:"sampleVideos,omitempty"`
}

// SubmissionUpload is the body of a student submission: the submission
// fields plus the recording to transcribe and grade.
type SubmissionUpload struct {
	Submission
	Recording *MediaFile `json:"recording"`
}

// GradeRequest is the body of a manual grading call.
type GradeRequest struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Pipeline stages reported while a submission is graded.
const (
	StageTranscribing = "transcribing"
	StageChecking     = "checking"
	StageGrading      = "grading"
	StageSaving       = "saving"
	StageMismatch     = "mismatch"
	StageDone         = "done"
	StageError        = "error"
)

// PipelineEvent is one progress report from a grading run, streamed
// over the grading websocket.
type PipelineEvent struct {
	When       time.Time   `json:"when"`
	Stage      string      `json:"stage"`
	Message    string      `json:"message"`
	Submission *Submission `json:"submission,omitempty"`
}

const (
	SnapshotSourceRemote   = "remote"
	SnapshotSourceFallback = "fallback"

	SnapshotStateOK       = "ok"
	SnapshotStateWarning  = "warning"
	SnapshotStateCritical = "critical"
)

// SnapshotStatus describes the health of a server's snapshot cache.
type SnapshotStatus struct {
	State    string    `json:"state"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}
