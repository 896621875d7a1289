package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-martini/martini"
	"github.com/gorilla/websocket"

	. "github.com/hongclass/speakgrinder/types"
)

// SocketAutoGrade handles a request to /v2/sockets/grading/:submission_id
// It expects a websocket connection, which will receive a series of
// PipelineEvent objects as the grading pipeline works through the
// submission's existing transcript: the topic check, the grading call,
// and the save. The final event has stage "done" and carries the
// updated submission; a failure is reported with stage "error".
//
// Only one grading run per submission is allowed at a time; a second
// connection for the same submission is refused.
func SocketAutoGrade(w http.ResponseWriter, r *http.Request, store *Store, pipeline *Pipeline, params martini.Params) {
	// sessions are cookie-based, so the browser presents them on the
	// websocket handshake as well
	if _, err := GetSession(r); err != nil {
		loggedHTTPErrorf(w, http.StatusUnauthorized, "authentication failed: try logging in again")
		return
	}

	submissionID := params["submission_id"]
	if submissionID == "" {
		loggedHTTPErrorf(w, http.StatusBadRequest, "missing submission_id in URL")
		return
	}

	// get a websocket
	socket, err := websocket.Upgrade(w, r, nil, 1024, 1024)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "websocket error: %v", err)
		return
	}
	defer func() {
		socket.WriteControl(websocket.CloseMessage, nil, time.Now().Add(5*time.Second))
		socket.Close()
	}()
	logAndTransmitErrorf := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		log.Print(msg)
		event := &PipelineEvent{When: time.Now(), Stage: StageError, Message: msg}
		if err := socket.WriteJSON(event); err != nil {
			// what can we do? we already logged the error
		}
	}

	sub, err := store.SubmissionByID(submissionID)
	if err != nil {
		logAndTransmitErrorf("%v", err)
		return
	}
	asst, err := store.AssignmentByID(sub.AssignmentID)
	if err != nil {
		logAndTransmitErrorf("submission %s: %v", submissionID, err)
		return
	}
	if sub.Transcript == "" {
		logAndTransmitErrorf("submission %s has no transcript; it cannot be auto-graded", submissionID)
		return
	}

	if err := pipeline.Begin(submissionID); err != nil {
		logAndTransmitErrorf("%v", err)
		return
	}
	defer pipeline.End(submissionID)

	// a re-run starts from a clean verdict
	sub.ContentMismatched = false

	report := func(event *PipelineEvent) {
		if err := socket.WriteJSON(event); err != nil {
			log.Printf("error writing event to websocket: %v", err)
		}
	}
	if _, err := pipeline.Process(sub, asst, nil, false, report); err != nil {
		logAndTransmitErrorf("auto-grading submission %s: %v", submissionID, err)
		return
	}
}
