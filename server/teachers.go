package main

import (
	"net/http"
	"strings"

	"github.com/go-martini/martini"
	"github.com/martini-contrib/render"
	"golang.org/x/crypto/bcrypt"

	. "github.com/hongclass/speakgrinder/types"
)

// PostSession handles /v2/sessions requests,
// logging a teacher in and setting a session cookie.
//
// The login is checked against the remote backend first. If the
// backend cannot be reached, the credentials are checked against the
// cached teacher list instead so a flaky backend does not lock
// everyone out.
func PostSession(w http.ResponseWriter, store *Store, gateway *Gateway, req LoginRequest, render render.Render) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		loggedHTTPErrorf(w, http.StatusBadRequest, "username and password are both required")
		return
	}

	var remote Teacher
	err := gateway.Call(ActionLogin, &req, &remote)
	switch err.(type) {
	case nil:
		// backend accepted the login

	case *ApplicationError:
		loggedHTTPErrorf(w, http.StatusUnauthorized, "login failed: %v", err)
		return

	default:
		// backend unreachable: check against the cached teacher list
		teacher, terr := store.TeacherByUsername(req.Username)
		if terr != nil || !passwordMatches(teacher.Password, req.Password) {
			loggedHTTPErrorf(w, http.StatusUnauthorized, "login failed")
			return
		}
	}

	session := NewSession(req.Username)
	session.Save(w)

	teacher, err := store.TeacherByUsername(req.Username)
	if err != nil {
		// logged in against the backend but not yet in the snapshot
		teacher = &Teacher{Username: req.Username}
	}
	teacher.Password = ""
	render.JSON(http.StatusOK, teacher)
}

// passwordMatches checks a password against a stored credential, which
// is a bcrypt hash for accounts created here and a cleartext password
// for rows imported from an existing sheet.
func passwordMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return stored != "" && stored == given
}

// DeleteSession handles /v2/sessions requests,
// clearing the session cookie.
func DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := GetSession(r)
	if err != nil {
		session = NewSession("")
	}
	session.Delete(w)
}

// GetTeacherMe handles /v2/users/me requests,
// returning the current logged-in teacher.
func GetTeacherMe(teacher *Teacher, render render.Render) {
	teacher.Password = ""
	render.JSON(http.StatusOK, teacher)
}

// GetTeachers handles /v2/teachers requests,
// returning a list of all teacher accounts with credentials redacted.
func GetTeachers(w http.ResponseWriter, store *Store, render render.Render) {
	teachers, err := store.Teachers()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	for _, teacher := range teachers {
		teacher.Password = ""
	}
	render.JSON(http.StatusOK, teachers)
}

// PostTeacher handles /v2/teachers requests,
// creating a new teacher account. The password is stored as a bcrypt
// hash.
func PostTeacher(w http.ResponseWriter, store *Store, gateway *Gateway, teacher Teacher, render render.Render) {
	if err := teacher.Normalize(); err != nil {
		loggedHTTPErrorf(w, http.StatusBadRequest, "%v", err)
		return
	}
	if existing, err := store.TeacherByUsername(teacher.Username); err == nil && existing != nil {
		loggedHTTPErrorf(w, http.StatusConflict, "teacher %s already exists", teacher.Username)
		return
	}
	if teacher.ID == "" {
		teacher.ID = newID("t")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(teacher.Password), bcrypt.DefaultCost)
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "hashing password: %v", err)
		return
	}
	teacher.Password = string(hash)

	if err := gateway.Call(ActionTeacherUpsert, &teacher, nil); err != nil {
		gatewayHTTPErrorf(w, err, "saving teacher %s", teacher.Username)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after saving teacher %s", teacher.Username)
		return
	}

	teacher.Password = ""
	render.JSON(http.StatusOK, &teacher)
}

// DeleteTeacher handles /v2/teachers/:username requests,
// deleting a teacher account. The last remaining account cannot be
// deleted.
func DeleteTeacher(w http.ResponseWriter, store *Store, gateway *Gateway, params martini.Params) {
	username, err := parseParamID(w, "username", params["username"])
	if err != nil {
		return
	}
	if _, err := store.TeacherByUsername(username); err != nil {
		loggedHTTPErrorf(w, http.StatusNotFound, "%v", err)
		return
	}
	teachers, err := store.Teachers()
	if err != nil {
		loggedHTTPErrorf(w, http.StatusInternalServerError, "db error: %v", err)
		return
	}
	if len(teachers) <= 1 {
		loggedHTTPErrorf(w, http.StatusForbidden, "cannot delete the last teacher account")
		return
	}

	if err := gateway.Call(ActionTeacherDelete, map[string]string{"username": username}, nil); err != nil {
		gatewayHTTPErrorf(w, err, "deleting teacher %s", username)
		return
	}
	if err := store.ReloadAll(); err != nil {
		gatewayHTTPErrorf(w, err, "reloading after deleting teacher %s", username)
		return
	}
}
