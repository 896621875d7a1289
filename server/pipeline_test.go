package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/hongclass/speakgrinder/types"
)

// newFakeAI serves canned generateContent replies, one per call.
func newFakeAI(t *testing.T, replies ...string) (*httptest.Server, *int) {
	calls := new(int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if *calls >= len(replies) {
			t.Errorf("unexpected extra AI call")
			http.Error(w, "no more replies", http.StatusInternalServerError)
			return
		}
		reply := replies[*calls]
		*calls++
		if reply == "FAIL" {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, reply)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestPipelinePlaceholderGrading(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	store := newTestStore(t, backend)
	require.NoError(t, store.ReloadAll())

	// no API key: transcription and grading degrade to placeholders,
	// and the similarity check passes
	ai := NewAIClient("", "gemini-2.5-flash")
	pipeline := NewPipeline(store, store.gateway, ai)

	sub := &Submission{
		ID: "s2", StudentName: "Binh", AssignmentID: "a1", ClassID: "c1",
		SubmissionFileName: "binh.webm", Status: StatusFieldPending,
	}
	asst, err := store.AssignmentByID("a1")
	require.NoError(t, err)

	media := &MediaFile{Name: "binh.webm", MimeType: "video/webm", Data: "AAAA"}
	graded, err := pipeline.Process(sub, asst, media, true, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, graded.Transcript)
	assert.False(t, graded.ContentMismatched)
	assert.Equal(t, StatusFieldGraded, graded.Status)
	require.True(t, graded.HasScore())
	assert.Equal(t, 7.5, *graded.Score)
	assert.Contains(t, graded.Feedback, "Binh")

	// the submission was persisted and reloaded into the snapshot
	assert.Equal(t, 1, backend.calls(ActionSubmitCreate))
	stored, err := store.SubmissionByID("s2")
	require.NoError(t, err)
	assert.Equal(t, StatusFieldGraded, stored.Status)
}

func TestPipelineMismatchStopsBeforeGrading(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	store := newTestStore(t, backend)
	require.NoError(t, store.ReloadAll())

	aiServer, calls := newFakeAI(t, `{"isMatch": false}`)
	ai := NewAIClient("test-key", "gemini-2.5-flash")
	ai.BaseURL = aiServer.URL
	pipeline := NewPipeline(store, store.gateway, ai)

	sub, err := store.SubmissionByID("s1")
	require.NoError(t, err)
	sub.Transcript = "My favorite food is pho."
	asst, err := store.AssignmentByID("a1")
	require.NoError(t, err)

	var stages []string
	report := func(event *PipelineEvent) { stages = append(stages, event.Stage) }
	result, err := pipeline.Process(sub, asst, nil, false, report)
	require.NoError(t, err)

	// the mismatch is persisted pending with no grade, and the grading
	// call never happens
	assert.True(t, result.ContentMismatched)
	assert.Equal(t, StatusFieldPending, result.Status)
	assert.Nil(t, result.Score)
	assert.Empty(t, result.Feedback)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, backend.calls(ActionScoreUpdate))
	assert.Contains(t, stages, StageMismatch)
	assert.Equal(t, StageDone, stages[len(stages)-1])
}

func TestPipelineFreestyleSkipsTopicCheck(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	backend.assignments[0].IsFreestyle = true
	store := newTestStore(t, backend)
	require.NoError(t, store.ReloadAll())

	// the only AI call is the grading call
	aiServer, calls := newFakeAI(t, `{"score": 11.5, "feedback": "Giỏi lắm con!"}`)
	ai := NewAIClient("test-key", "gemini-2.5-flash")
	ai.BaseURL = aiServer.URL
	pipeline := NewPipeline(store, store.gateway, ai)

	sub, err := store.SubmissionByID("s1")
	require.NoError(t, err)
	// a stale mismatch verdict from an earlier run must not survive a
	// graded result, even though the freestyle path never re-checks it
	sub.ContentMismatched = true
	asst, err := store.AssignmentByID("a1")
	require.NoError(t, err)

	result, err := pipeline.Process(sub, asst, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	require.True(t, result.HasScore())
	// scores from the model are clamped to the legal range
	assert.Equal(t, 10.0, *result.Score)
	assert.Equal(t, "Giỏi lắm con!", result.Feedback)
	assert.False(t, result.ContentMismatched)
}

func TestPipelineGradingFailureKeepsTranscript(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	backend.assignments[0].IsFreestyle = true
	store := newTestStore(t, backend)
	require.NoError(t, store.ReloadAll())

	aiServer, _ := newFakeAI(t, "FAIL")
	ai := NewAIClient("test-key", "gemini-2.5-flash")
	ai.BaseURL = aiServer.URL
	pipeline := NewPipeline(store, store.gateway, ai)

	sub, err := store.SubmissionByID("s1")
	require.NoError(t, err)
	sub.Score = nil
	sub.Status = StatusFieldPending
	asst, err := store.AssignmentByID("a1")
	require.NoError(t, err)

	_, err = pipeline.Process(sub, asst, nil, false, nil)
	require.Error(t, err)

	// the submission went back pending with its transcript intact
	assert.Equal(t, 1, backend.calls(ActionScoreUpdate))
	stored, err := store.SubmissionByID("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusFieldPending, stored.Status)
	assert.NotEmpty(t, stored.Transcript)
}

func TestPipelineRefusesConcurrentRuns(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	store := newTestStore(t, backend)
	pipeline := NewPipeline(store, store.gateway, NewAIClient("", ""))

	require.NoError(t, pipeline.Begin("s1"))
	assert.Error(t, pipeline.Begin("s1"))
	require.NoError(t, pipeline.Begin("s2"))

	pipeline.End("s1")
	assert.NoError(t, pipeline.Begin("s1"))
}
