package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/russross/meddler"

	. "github.com/hongclass/speakgrinder/types"
)

// createSchema creates the snapshot cache tables. The cache is a local
// mirror of the remote sheets, replaced wholesale on every reload, so
// there are no foreign keys and no autoincrement IDs: the remote data
// carries its own IDs.
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS classes (
			id text NOT NULL,
			name text NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			id text NOT NULL,
			class_id text NOT NULL,
			title text NOT NULL,
			assigned_date text NOT NULL,
			due_date text NOT NULL,
			is_freestyle integer NOT NULL,
			sample_video_urls text NOT NULL,
			sample_video_transcript text
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id text NOT NULL,
			student_name text NOT NULL,
			assignment_id text NOT NULL,
			class_id text NOT NULL,
			submission_file_url text NOT NULL,
			submission_file_name text NOT NULL,
			transcript text,
			score real,
			feedback text,
			status text NOT NULL,
			content_mismatched integer NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS teachers (
			id text NOT NULL,
			username text NOT NULL,
			password text NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_state (
			singleton integer NOT NULL,
			loaded_at text NOT NULL,
			source text NOT NULL
		)`,
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			return err
		}
	}
	return nil
}

// Store is the snapshot cache: a local sqlite mirror of the remote
// sheets. Reads are served from the cache; every successful reload
// replaces the whole snapshot in a single transaction, and a failed
// reload leaves the previous snapshot untouched.
type Store struct {
	db      *sql.DB
	gateway *Gateway

	// serializes reloads; plain reads rely on sqlite
	reloadMutex sync.Mutex
}

func NewStore(db *sql.DB, gateway *Gateway) *Store {
	return &Store{db: db, gateway: gateway}
}

// ReloadAll fetches all four collections from the gateway concurrently
// and replaces the snapshot in one transaction. If any fetch fails the
// snapshot is left untouched and the first error is returned.
func (store *Store) ReloadAll() error {
	store.reloadMutex.Lock()
	defer store.reloadMutex.Unlock()

	var classes []*ClassGroup
	var assignments []*Assignment
	var submissions []*Submission
	var teachers []*Teacher

	errors := make(chan error, 4)
	go func() { errors <- store.gateway.Call(ActionClassesList, nil, &classes) }()
	go func() { errors <- store.gateway.Call(ActionAssignList, nil, &assignments) }()
	go func() { errors <- store.gateway.Call(ActionSubmitList, nil, &submissions) }()
	go func() { errors <- store.gateway.Call(ActionTeachersList, nil, &teachers) }()

	var firstErr error
	for i := 0; i < 4; i++ {
		if err := <-errors; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}

	return store.replaceSnapshot(classes, assignments, submissions, teachers, SnapshotSourceRemote)
}

// LoadFallback replaces the snapshot with the built-in starter dataset.
// Meant for demos and for bootstrapping a brand-new deployment whose
// sheets are still empty.
func (store *Store) LoadFallback() error {
	store.reloadMutex.Lock()
	defer store.reloadMutex.Unlock()

	classes, assignments, submissions, teachers := FallbackDataset()
	return store.replaceSnapshot(classes, assignments, submissions, teachers, SnapshotSourceFallback)
}

func (store *Store) replaceSnapshot(classes []*ClassGroup, assignments []*Assignment, submissions []*Submission, teachers []*Teacher, source string) error {
	tx, err := store.db.Begin()
	if err != nil {
		return fmt.Errorf("db error starting snapshot transaction: %v", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"classes", "assignments", "submissions", "teachers", "snapshot_state"} {
		if _, err = tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("db error clearing %s: %v", table, err)
		}
	}
	for _, elt := range classes {
		if err = meddler.Insert(tx, "classes", elt); err != nil {
			return fmt.Errorf("db error inserting class %s: %v", elt.ID, err)
		}
	}
	for _, elt := range assignments {
		if err = meddler.Insert(tx, "assignments", elt); err != nil {
			return fmt.Errorf("db error inserting assignment %s: %v", elt.ID, err)
		}
	}
	for _, elt := range submissions {
		if err = meddler.Insert(tx, "submissions", elt); err != nil {
			return fmt.Errorf("db error inserting submission %s: %v", elt.ID, err)
		}
	}
	for _, elt := range teachers {
		if err = meddler.Insert(tx, "teachers", elt); err != nil {
			return fmt.Errorf("db error inserting teacher %s: %v", elt.Username, err)
		}
	}
	if _, err = tx.Exec("INSERT INTO snapshot_state (singleton, loaded_at, source) VALUES (1, ?, ?)",
		time.Now().Format(time.RFC3339), source); err != nil {
		return fmt.Errorf("db error recording snapshot state: %v", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("db error committing snapshot: %v", err)
	}

	log.Printf("snapshot replaced from %s: %d classes, %d assignments, %d submissions, %d teachers",
		source, len(classes), len(assignments), len(submissions), len(teachers))
	return nil
}

// Status reports the health of the snapshot: critical if no snapshot
// has ever loaded, a warning if the snapshot loaded but is missing
// teacher accounts or classes, ok otherwise. An empty collection never
// blocks use of whatever data did load.
func (store *Store) Status() *SnapshotStatus {
	status := &SnapshotStatus{State: SnapshotStateOK}

	var loadedAt, source string
	err := store.db.QueryRow("SELECT loaded_at, source FROM snapshot_state WHERE singleton = 1").Scan(&loadedAt, &source)
	if err != nil {
		status.State = SnapshotStateCritical
		status.Warnings = append(status.Warnings, "no snapshot has been loaded yet")
		return status
	}
	status.Source = source
	if when, err := time.Parse(time.RFC3339, loadedAt); err == nil {
		status.LoadedAt = when
	}

	teachers, err := store.Teachers()
	if err != nil || len(teachers) == 0 {
		status.State = SnapshotStateWarning
		status.Warnings = append(status.Warnings, "no teacher accounts are loaded; logins will fail")
	}
	classes, err := store.Classes()
	if err != nil || len(classes) == 0 {
		status.State = SnapshotStateWarning
		status.Warnings = append(status.Warnings, "no classes are loaded")
	}

	return status
}

func (store *Store) Classes() ([]*ClassGroup, error) {
	classes := []*ClassGroup{}
	err := meddler.QueryAll(store.db, &classes, "SELECT * FROM classes ORDER BY name")
	return classes, err
}

func (store *Store) Assignments() ([]*Assignment, error) {
	assignments := []*Assignment{}
	err := meddler.QueryAll(store.db, &assignments, "SELECT * FROM assignments ORDER BY assigned_date DESC, id")
	return assignments, err
}

func (store *Store) Submissions() ([]*Submission, error) {
	submissions := []*Submission{}
	err := meddler.QueryAll(store.db, &submissions, "SELECT * FROM submissions ORDER BY id")
	return submissions, err
}

func (store *Store) Teachers() ([]*Teacher, error) {
	teachers := []*Teacher{}
	err := meddler.QueryAll(store.db, &teachers, "SELECT * FROM teachers ORDER BY username")
	return teachers, err
}

func (store *Store) ClassByID(id string) (*ClassGroup, error) {
	class := new(ClassGroup)
	err := meddler.QueryRow(store.db, class, "SELECT * FROM classes WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("class %s not found", id)
	}
	return class, err
}

func (store *Store) AssignmentByID(id string) (*Assignment, error) {
	asst := new(Assignment)
	err := meddler.QueryRow(store.db, asst, "SELECT * FROM assignments WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment %s not found", id)
	}
	return asst, err
}

func (store *Store) SubmissionByID(id string) (*Submission, error) {
	sub := new(Submission)
	err := meddler.QueryRow(store.db, sub, "SELECT * FROM submissions WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("submission %s not found", id)
	}
	return sub, err
}

func (store *Store) TeacherByUsername(username string) (*Teacher, error) {
	teacher := new(Teacher)
	err := meddler.QueryRow(store.db, teacher, "SELECT * FROM teachers WHERE username = ?", username)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("teacher %s not found", username)
	}
	return teacher, err
}

// newID mints an ID for a new record. The remote backend stores IDs as
// opaque strings, so a timestamp with a random suffix is sufficient.
func newID(prefix string) string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
