package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/hongclass/speakgrinder/types"
)

func init() {
	meddler.Default = meddler.SQLite
}

// fakeBackend is a scripted stand-in for the spreadsheet web-app
// endpoint. It serves the collections it holds and records mutations.
type fakeBackend struct {
	mutex       sync.Mutex
	classes     []*ClassGroup
	assignments []*Assignment
	submissions []*Submission
	teachers    []*Teacher
	fail        bool
	actions     []string
	server      *httptest.Server
}

func newFakeBackend() *fakeBackend {
	backend := new(fakeBackend)
	backend.server = httptest.NewServer(http.HandlerFunc(backend.handle))
	return backend
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var envelope struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.actions = append(b.actions, envelope.Action)

	if b.fail {
		http.Error(w, "backend is down", http.StatusInternalServerError)
		return
	}

	ok := func(data interface{}) {
		reply, _ := json.Marshal(map[string]interface{}{"ok": true, "data": data})
		w.Write(reply)
	}

	switch envelope.Action {
	case ActionClassesList:
		ok(b.classes)
	case ActionAssignList:
		ok(b.assignments)
	case ActionSubmitList:
		ok(b.submissions)
	case ActionTeachersList:
		ok(b.teachers)
	case ActionSubmitCreate:
		sub := new(Submission)
		json.Unmarshal(envelope.Data, sub)
		b.submissions = append(b.submissions, sub)
		ok(sub)
	case ActionScoreUpdate:
		sub := new(Submission)
		json.Unmarshal(envelope.Data, sub)
		for i, elt := range b.submissions {
			if elt.ID == sub.ID {
				b.submissions[i] = sub
			}
		}
		ok(sub)
	default:
		ok(true)
	}
}

func (b *fakeBackend) calls(action string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := 0
	for _, elt := range b.actions {
		if elt == action {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T, backend *fakeBackend) *Store {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, createSchema(db))
	t.Cleanup(func() { db.Close() })
	return NewStore(db, NewGateway(backend.server.URL))
}

func seedBackend(backend *fakeBackend) {
	graded := 8.5
	backend.classes = []*ClassGroup{{ID: "c1", Name: "Beginning Conversation"}}
	backend.assignments = []*Assignment{{
		ID: "a1", ClassID: "c1", Title: "My hobbies",
		AssignedDate: "2026-01-05", DueDate: "2026-01-12",
		SampleVideoURLs:       []string{"https://example.com/sample.mp4"},
		SampleVideoTranscript: "I like reading and swimming.",
	}}
	backend.submissions = []*Submission{{
		ID: "s1", StudentName: "An", AssignmentID: "a1", ClassID: "c1",
		SubmissionFileURL: "https://example.com/an.mp4", SubmissionFileName: "an.mp4",
		Transcript: "I like to read books.", Score: &graded,
		Feedback: "Tốt lắm!", Status: StatusFieldGraded,
	}}
	backend.teachers = []*Teacher{{ID: "t1", Username: "mshong", Password: "changeme"}}
}

func TestStoreReloadAll(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	store := newTestStore(t, backend)

	require.NoError(t, store.ReloadAll())

	classes, err := store.Classes()
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Beginning Conversation", classes[0].Name)

	asst, err := store.AssignmentByID("a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/sample.mp4"}, asst.SampleVideoURLs)
	assert.Equal(t, "I like reading and swimming.", asst.SampleVideoTranscript)

	sub, err := store.SubmissionByID("s1")
	require.NoError(t, err)
	require.True(t, sub.HasScore())
	assert.Equal(t, 8.5, *sub.Score)

	teacher, err := store.TeacherByUsername("mshong")
	require.NoError(t, err)
	assert.Equal(t, "changeme", teacher.Password)

	_, err = store.SubmissionByID("nope")
	assert.Error(t, err)
}

func TestStoreReloadKeepsStaleSnapshotOnFailure(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	seedBackend(backend)
	store := newTestStore(t, backend)
	require.NoError(t, store.ReloadAll())

	backend.mutex.Lock()
	backend.fail = true
	backend.mutex.Unlock()

	err := store.ReloadAll()
	require.Error(t, err)

	// the previous snapshot is still served
	classes, err := store.Classes()
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestStoreStatus(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	store := newTestStore(t, backend)

	// nothing loaded yet is the only critical state
	status := store.Status()
	assert.Equal(t, SnapshotStateCritical, status.State)

	// an empty backend loads successfully; missing teachers means
	// logins cannot work, but the snapshot is still usable
	require.NoError(t, store.ReloadAll())
	status = store.Status()
	assert.Equal(t, SnapshotStateWarning, status.State)
	assert.NotEmpty(t, status.Warnings)

	// teachers but no classes is also a warning
	backend.mutex.Lock()
	backend.teachers = []*Teacher{{ID: "t1", Username: "mshong", Password: "x"}}
	backend.mutex.Unlock()
	require.NoError(t, store.ReloadAll())
	status = store.Status()
	assert.Equal(t, SnapshotStateWarning, status.State)

	seedBackend(backend)
	require.NoError(t, store.ReloadAll())
	status = store.Status()
	assert.Equal(t, SnapshotStateOK, status.State)
	assert.Equal(t, SnapshotSourceRemote, status.Source)
	assert.Empty(t, status.Warnings)
}

func TestStoreLoadFallback(t *testing.T) {
	backend := newFakeBackend()
	defer backend.server.Close()
	store := newTestStore(t, backend)

	require.NoError(t, store.LoadFallback())

	status := store.Status()
	assert.Equal(t, SnapshotStateOK, status.State)
	assert.Equal(t, SnapshotSourceFallback, status.Source)

	teacher, err := store.TeacherByUsername("mshong")
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.Password)

	// the starter dataset passes its own validation
	classes, err := store.Classes()
	require.NoError(t, err)
	assert.NotEmpty(t, classes)
	assignments, err := store.Assignments()
	require.NoError(t, err)
	for _, asst := range assignments {
		assert.NoError(t, asst.Normalize())
	}
}
