package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-martini/martini"
	"github.com/martini-contrib/render"

	. "github.com/hongclass/speakgrinder/types"
)

// GetSubmissions handles /v2/submissions requests,
// returning one page of the filtered, sorted submission list.
//
// Recognized parameters: search=<...> for case-insensitive substring
// matching on student name, file name, and assignment title;
// class_id=<...> and status=<...> to filter ("all" or empty leaves a
// filter off); sort=newest|oldest|dueDate; page=<n>.
func GetSubmissions(w http.ResponseWriter, r *http.Request, store *Store, render render.Render) {
	subs, err := store.Submissions()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	assignments, err := store.Assignments()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	classes, err := store.Classes()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}

	filter := SubmissionFilter{
		Search:  r.FormValue("search"),
		ClassID: r.FormValue("class_id"),
		Status:  r.FormValue("status"),
		SortKey: r.FormValue("sort"),
	}
	page := 1
	if n, err := strconv.Atoi(r.FormValue("page")); err == nil {
		page = n
	}

	// if a student name is given, return that student's submissions
	// without paging (the submission screen's own-work list)
	if student := r.FormValue("student"); student != "" {
		render.JSON(http.StatusOK, OwnSubmissions(subs, assignments, student))
		return
	}

	render.JSON(http.StatusOK, ViewSubmissions(subs, assignments, classes, filter, page, SubmissionsPerPage))
}

// GetSubmission handles /v2/submissions/:submission_id requests,
// returning a single submission.
func GetSubmission(w http.ResponseWriter, store *Store, params martini.Params, render render.Render) {
	submissionID, err := parseParamID(w, "submission_id", params["submission_id"])
	if err != nil {
		return
	}
	sub, err := store.SubmissionByID(submissionID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	render.JSON(http.StatusOK, sub)
}

// PostSubmission handles /v2/submissions requests,
// accepting a student's recording and running the full grading
// pipeline on it: transcribe, check the topic, grade, and save. A
// transcription failure rejects the submission outright so the student
// knows to try again; a topic mismatch saves the submission ungraded
// with the mismatch flag set.
func PostSubmission(w http.ResponseWriter, store *Store, pipeline *Pipeline, upload SubmissionUpload, render render.Render) {
	sub := upload.Submission
	if upload.Recording == nil || upload.Recording.Data == "" {
		loggedHTTPErrorf(w, http.StatusBadRequest, "a submission must include a recording")
		return
	}

	asst, err := store.AssignmentByID(sub.AssignmentID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	if sub.ClassID == "" {
		sub.ClassID = asst.ClassID
	}
	if sub.SubmissionFileName == "" {
		sub.SubmissionFileName = upload.Recording.Name
	}
	sub.ID = newID("s")
	sub.Status = StatusFieldPending
	if err := sub.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}

	if err := pipeline.Begin(sub.ID); err != nil {
		loggedHTTPErrorf(w, http.StatusConflict, "%v", err)
		return
	}
	defer pipeline.End(sub.ID)

	graded, err := pipeline.Process(&sub, asst, upload.Recording, true, nil)
	if err != nil {
		gatewayHTTPErrorf(w, err, "processing submission from %s", sub.StudentName)
		return
	}
	render.JSON(http.StatusOK, graded)
}

// GetSubmissionFeedback handles /v2/submissions/:submission_id/feedback
// requests, returning the submission's feedback rendered as a safe HTML
// fragment for display in the web UI.
func GetSubmissionFeedback(w http.ResponseWriter, store *Store, params martini.Params) {
	submissionID, err := parseParamID(w, "submission_id", params["submission_id"])
	if err != nil {
		return
	}
	sub, err := store.SubmissionByID(submissionID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	fragment, err := FeedbackHTML(sub.Feedback)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "rendering feedback for submission %s: %v", submissionID, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, fragment)
}

// DeleteSubmission handles /v2/submissions/:submission_id requests,
// deleting a submission.
func DeleteSubmission(w http.ResponseWriter, store *Store, gateway *Gateway, params martini.Params) {
	submissionID, err := parseParamID(w, "submission_id", params["submission_id"])
	if err != nil {
		return
	}
	if _, err := store.SubmissionByID(submissionID); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}

	if err := gateway.Call(ActionSubmitDelete, map[string]string{"id": submissionID}, nil); err != nil {
		gatewayHTTPErrorf(w, err, "deleting submission %s", submissionID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after deleting submission %s", submissionID)
		return
	}
}

// PostGrade handles /v2/submissions/:submission_id/grade requests,
// letting a teacher assign or override a score and feedback by hand.
// A manual grade clears the mismatch flag: the teacher has looked at
// the submission and accepted it. Manual and automatic grading share
// the in-flight registry, so a grade cannot commit while an auto-grade
// run is working on the same submission.
func PostGrade(w http.ResponseWriter, store *Store, gateway *Gateway, pipeline *Pipeline, params martini.Params, req GradeRequest, render render.Render) {
	submissionID, err := parseParamID(w, "submission_id", params["submission_id"])
	if err != nil {
		return
	}
	if err := pipeline.Begin(submissionID); err != nil {
		loggedHTTPErrorf(w, http.StatusConflict, "%v", err)
		return
	}
	defer pipeline.End(submissionID)

	sub, err := store.SubmissionByID(submissionID)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}

	score := ClampScore(req.Score)
	sub.Score = &score
	sub.Feedback = req.Feedback
	sub.Status = StatusFieldGraded
	sub.ContentMismatched = false

	if err := gateway.Call(ActionScoreUpdate, sub, nil); err != nil {
		gatewayHTTPErrorf(w, err, "saving grade for submission %s", submissionID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after grading submission %s", submissionID)
		return
	}
	render.JSON(http.StatusOK, sub)
}
