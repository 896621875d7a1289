package main

import (
	"net/http"

	"github.com/go-martini/martini"
	"github.com/martini-contrib/render"

	. "github.com/hongclass/speakgrinder/types"
)

// GetClasses handles /v2/classes requests,
// returning a list of all classes.
func GetClasses(w http.ResponseWriter, store *Store, render render.Render) {
	classes, err := store.Classes()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	render.JSON(http.StatusOK, classes)
}

// PostClass handles /v2/classes requests,
// creating a new class.
func PostClass(w http.ResponseWriter, store *Store, gateway *Gateway, class ClassGroup, render render.Render) {
	if err := class.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}
	if class.ID == "" {
		class.ID = newID("c")
	}

	if err := gateway.Call(ActionClassCreate, &class, nil); err != nil {
		gatewayHTTPErrorf(w, err, "saving class %s", class.Name)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after saving class %s", class.Name)
		return
	}
	render.JSON(http.StatusOK, &class)
}

// PutClass handles /v2/classes/:class_id requests,
// updating an existing class.
func PutClass(w http.ResponseWriter, store *Store, gateway *Gateway, params martini.Params, class ClassGroup, render render.Render) {
	classID, err := parseParamID(w, "class_id", params["class_id"])
	if err != nil {
		return
	}
	if _, err := store.ClassByID(classID); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	class.ID = classID
	if err := class.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}

	if err := gateway.Call(ActionClassUpdate, &class, nil); err != nil {
		gatewayHTTPErrorf(w, err, "updating class %s", classID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after updating class %s", classID)
		return
	}
	render.JSON(http.StatusOK, &class)
}

// DeleteClass handles /v2/classes/:class_id requests,
// deleting a class.
func DeleteClass(w http.ResponseWriter, store *Store, gateway *Gateway, params martini.Params) {
	classID, err := parseParamID(w, "class_id", params["class_id"])
	if err != nil {
		return
	}
	if _, err := store.ClassByID(classID); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}

	if err := gateway.Call(ActionClassDelete, map[string]string{"id": classID}, nil); err != nil {
		gatewayHTTPErrorf(w, err, "deleting class %s", classID)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after deleting class %s", classID)
		return
	}
}

// PostReload handles /v2/reload requests,
// refreshing the snapshot cache from the remote backend.
func PostReload(w http.ResponseWriter, store *Store, render render.Render) {
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading snapshot")
		return
	}
	render.JSON(http.StatusOK, store.Status())
}

// PostFallback handles /v2/fallback requests,
// replacing the snapshot with the built-in starter dataset.
func PostFallback(w http.ResponseWriter, store *Store, render render.Render) {
	if err := store.LoadFallback(); err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "loading fallback dataset: %v", err)
		return
	}
	render.JSON(http.StatusOK, store.Status())
}

// GetSnapshotStatus handles /v2/snapshot/status requests,
// reporting the health of the snapshot cache.
func GetSnapshotStatus(store *Store, render render.Render) {
	render.JSON(http.StatusOK, store.Status())
}
