package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-martini/martini"
	"github.com/martini-contrib/render"

	. "github.com/hongclass/speakgrinder/types"
)

// GetAssignments handles /v2/assignments requests,
// returning a list of all assignments, newest first.
//
// If parameter search=<...> is present, results are filtered by
// case-insensitive substring matching on the title field; class_id=<...>
// restricts results to one class.
func GetAssignments(w http.ResponseWriter, r *http.Request, store *Store, render render.Render) {
	assignments, err := store.Assignments()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	if classID := r.FormValue("class_id"); classID != "" && classID != "all" {
		filtered := []*Assignment{}
		for _, asst := range assignments {
			if asst.ClassID == classID {
				filtered = append(filtered, asst)
			}
		}
		assignments = filtered
	}
	render.JSON(http.StatusOK, SearchAssignments(assignments, r.FormValue("search")))
}

// GetAssignment handles /v2/assignments/:assignment_id requests,
// returning a single assignment.
func GetAssignment(w http.ResponseWriter, store *Store, params martini.Params, render render.Render) {
	assignmentID, err := parseParamID(w, "assignment_id", params["assignment_id"])
	if err != nil {
		return
	}
	asst, err := store.AssignmentByID(assignmentID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	render.JSON(http.StatusOK, asst)
}

// PostAssignment handles /v2/assignments requests,
// creating a new assignment. Any attached sample videos are
// transcribed independently and joined into a single sample
// transcript; a video that cannot be transcribed contributes an error
// marker instead of failing the whole assignment.
func PostAssignment(w http.ResponseWriter, store *Store, gateway *Gateway, ai *AIClient, upload AssignmentUpload, render render.Render) {
	asst := upload.Assignment
	if _, err := store.ClassByID(asst.ClassID); asst.ClassID != "" && err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	if asst.ID == "" {
		asst.ID = newID("a")
	}
	if len(upload.SampleVideos) > 0 {
		asst.SampleVideoTranscript = transcribeSamples(ai, upload.SampleVideos)
	}
	if err := asst.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}

	if err := gateway.Call(ActionAssignCreate, &asst, nil); err != nil {
		gatewayHTTPErrorf(w, err, "saving assignment %s", asst.Title)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after saving assignment %s", asst.Title)
		return
	}
	render.JSON(http.StatusOK, &asst)
}

// PutAssignment handles /v2/assignments/:assignment_id requests,
// updating an existing assignment. If no new sample videos are
// attached the existing sample transcript is kept.
func PutAssignment(w http.ResponseWriter, store *Store, gateway *Gateway, ai *AIClient, params martini.Params, upload AssignmentUpload, render render.Render) {
	assignmentID, err := parseParamID(w, "assignment_id", params["assignment_id"])
	if err != nil {
		return
	}
	old, err := store.AssignmentByID(assignmentID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}

	asst := upload.Assignment
	asst.ID = assignmentID
	if len(upload.SampleVideos) > 0 {
		asst.SampleVideoTranscript = transcribeSamples(ai, upload.SampleVideos)
	} else if asst.SampleVideoTranscript == "" {
		asst.SampleVideoTranscript = old.SampleVideoTranscript
	}
	if err := asst.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}

	if err := gateway.Call(ActionAssignUpdate, &asst, nil); err != nil {
		gatewayHTTPErrorf(w, err, "updating assignment %s", assignmentID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after updating assignment %s", assignmentID)
		return
	}
	render.JSON(http.StatusOK, &asst)
}

// DeleteAssignment handles /v2/assignments/:assignment_id requests,
// deleting an assignment.
func DeleteAssignment(w http.ResponseWriter, store *Store, gateway *Gateway, params martini.Params) {
	assignmentID, err := parseParamID(w, "assignment_id", params["assignment_id"])
	if err != nil {
		return
	}
	if _, err := store.AssignmentByID(assignmentID); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}

	if err := gateway.Call(ActionAssignDelete, map[string]string{"id": assignmentID}, nil); err != nil {
		gatewayHTTPErrorf(w, err, "deleting assignment %s", assignmentID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after deleting assignment %s", assignmentID)
		return
	}
}

// transcribeSamples transcribes each sample video independently and
// joins the results. One bad video does not spoil the rest: its slot
// holds an error marker so the teacher can see which one to re-record.
func transcribeSamples(ai *AIClient, videos []*MediaFile) string {
	transcripts := make([]string, 0, len(videos))
	for _, video := range videos {
		transcript, err := ai.TranscribeSample(video)
		if err != nil {
			transcript = fmt.Sprintf("[error: could not transcribe %s]", video.Name)
		}
		transcripts = append(transcripts, transcript)
	}
	return strings.Join(transcripts, SampleTranscriptSeparator)
}
