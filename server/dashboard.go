package main

import (
	"net/http"

	"github.com/go-martini/martini"
	"github.com/martini-contrib/render"

	. "github.com/hongclass/speakgrinder/types"
)

// GetClassDashboard handles /v2/classes/:class_id/dashboard requests,
// returning graded/pending counts, the class average, and a score
// histogram for one class.
func GetClassDashboard(w http.ResponseWriter, store *Store, params martini.Params, render render.Render) {
	classID, err := parseParamID(w, "class_id", params["class_id"])
	if err != nil {
		return
	}
	if _, err := store.ClassByID(classID); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	subs, err := store.Submissions()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	render.JSON(http.StatusOK, AggregateClass(subs, classID))
}
