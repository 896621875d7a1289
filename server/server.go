package main

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"expvar"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-martini/martini"
	"github.com/joho/godotenv"
	"github.com/martini-contrib/binding"
	mgzip "github.com/martini-contrib/gzip"
	"github.com/martini-contrib/render"
	_ "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"

	. "github.com/hongclass/speakgrinder/types"
)

// Config holds site-specific configuration data.
var Config struct {
	// required parameters
	SheetURL      string `json:"sheetURL"`      // URL of the spreadsheet web-app endpoint backing all data
	SessionSecret string `json:"sessionSecret"` // Random string used to sign cookie sessions: `head -c 32 /dev/urandom | base64`

	// optional parameters
	GeminiKey   string `json:"geminiKey"`   // API key for the AI service; without it transcripts and grades degrade to placeholders
	GeminiModel string `json:"geminiModel"` // AI model name: default "gemini-2.5-flash"

	// parameters where the default is usually sufficient
	SQLite3Path    string      `json:"sqlite3Path"`    // path to the snapshot cache file: default "$SPEAKGRINDERROOT/db/speakgrinder.db"
	SessionsExpire []time.Time `json:"sessionsExpire"` // times/dates when sessions should expire (year is ignored)
}

var root string
var port string

func main() {
	log.SetFlags(log.Lshortfile)

	// a .env file is optional; normally config comes from the environment
	godotenv.Load()

	root = os.Getenv("SPEAKGRINDERROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("SPEAKGRINDERROOT is not set, and cannot find user's home directory")
		}
		root = filepath.Join(home, "speakgrinder")
	}
	log.Printf("SPEAKGRINDERROOT set to %s", root)

	port = ":" + os.Getenv("PORT")
	if port == ":" {
		port = ":8080"
	}
	log.Printf("port set to %s", port)

	// parse command line
	var use_config bool
	flag.BoolVar(&use_config, "config", false, "Use config.json for config data (for testing)")
	flag.Parse()

	// set config defaults
	Config.GeminiModel = "gemini-2.5-flash"
	Config.SQLite3Path = filepath.Join(root, "db", "speakgrinder.db")
	Config.SessionsExpire = []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2020, 7, 1, 0, 0, 0, 0, time.Local),
	}

	// load config
	if use_config {
		configFile := filepath.Join(root, "config.json")
		if raw, err := ioutil.ReadFile(configFile); err != nil {
			log.Fatalf("failed to load config file %q: %v", configFile, err)
		} else if err := json.Unmarshal(raw, &Config); err != nil {
			log.Fatalf("failed to parse config file: %v", err)
		}
	} else {
		Config.SheetURL = os.Getenv("SPEAKGRINDER_SHEETURL")
		Config.SessionSecret = os.Getenv("SPEAKGRINDER_SESSIONSECRET")
		Config.GeminiKey = os.Getenv("GEMINI_API_KEY")
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			Config.GeminiModel = model
		}
	}
	Config.SessionSecret = unBase64(Config.SessionSecret)

	if Config.SheetURL == "" {
		log.Fatalf("cannot run with no sheetURL in the config file")
	}
	if Config.SessionSecret == "" {
		log.Fatalf("cannot run with no sessionSecret in the config file")
	}
	if Config.GeminiKey == "" {
		log.Printf("no AI credential configured; transcripts and grades will be placeholders")
	}

	// set up martini
	r := martini.NewRouter()
	m := martini.New()
	m.Logger(log.New(os.Stderr, "", log.Lshortfile))
	m.Use(martini.Recovery())
	m.MapTo(r, (*martini.Routes)(nil))
	m.Action(r.Handle)

	counter := func(w http.ResponseWriter, r *http.Request, c martini.Context) {
		start := time.Now()
		c.Next()
		now := time.Now()
		seconds := now.Sub(start).Seconds()
		hits++
		hitsCounter.Add(1)
		if seconds > slowest {
			slowest = seconds
			slowestCounter.Set(seconds)
			slowestTimeCounter.Set(now.Format(time.RFC1123))
			slowestPathCounter.Set(r.URL.Path)
		}
		totalSeconds += seconds
		totalSecondsCounter.Add(seconds)
		averageSecondsCounter.Set(totalSeconds / float64(hits))
		rw := w.(martini.ResponseWriter)
		if rw.Status() >= 400 {
			errorsCounter.Add(1)
		}
		goroutineCounter.Set(int64(runtime.NumGoroutine()))
	}

	m.Use(mgzip.All())
	m.Use(martini.Static(filepath.Join(root, "www"), martini.StaticOptions{SkipLogging: true}))
	m.Use(render.Renderer(render.Options{IndentJSON: false}))

	// set up the shared services: the remote sheet gateway, the snapshot
	// store over the local cache, the AI client, and the grading pipeline
	gateway := NewGateway(Config.SheetURL)
	db := setupDB(Config.SQLite3Path)
	store := NewStore(db, gateway)
	ai := NewAIClient(Config.GeminiKey, Config.GeminiModel)
	pipeline := NewPipeline(store, gateway, ai)
	m.Map(gateway)
	m.Map(store)
	m.Map(ai)
	m.Map(pipeline)

	// load the initial snapshot; a failure here is not fatal since the
	// previous snapshot (if any) is still usable and a client can retry
	if err := store.ReloadAll(); err != nil {
		log.Printf("initial reload failed: %v", err)
	}

	// martini service: require an active logged-in session
	auth := func(w http.ResponseWriter, r *http.Request) {
		_, err := GetSession(r)
		if err != nil {
			loggedHTTPErrorf(w, http.StatusUnauthorized, "authentication failed: try logging in again")
			log.Printf("%v", err)
			return
		}
	}

	// martini service: include the current logged-in teacher (requires auth)
	withCurrentTeacher := func(c martini.Context, w http.ResponseWriter, r *http.Request, store *Store) {
		session, err := GetSession(r)
		if err != nil {
			loggedHTTPErrorf(w, http.StatusUnauthorized, "authentication failed: try logging in again")
			log.Printf("%v", err)
			return
		}

		teacher, err := store.TeacherByUsername(session.Username)
		if err != nil {
			loggedHTTPErrorf(w, http.StatusUnauthorized, "teacher %s no longer exists", session.Username)
			return
		}

		// map the current teacher to the request context
		c.Map(teacher)
	}

	// version
	r.Get("/v2/version", counter, func(w http.ResponseWriter, render render.Render) {
		render.JSON(http.StatusOK, &CurrentVersion)
	})

	// sessions
	r.Post("/v2/sessions", counter, binding.Json(LoginRequest{}), PostSession)
	r.Delete("/v2/sessions", counter, DeleteSession)
	r.Get("/v2/users/me", counter, withCurrentTeacher, GetTeacherMe)

	// snapshot management
	r.Post("/v2/reload", counter, PostReload)
	r.Post("/v2/fallback", counter, auth, PostFallback)
	r.Get("/v2/snapshot/status", counter, GetSnapshotStatus)

	// server stats
	r.Get("/v2/stats", counter, auth, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprintf(w, "{\n")
		first := true
		expvar.Do(func(kv expvar.KeyValue) {
			if !first {
				fmt.Fprintf(w, ",\n")
			}
			first = false
			fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
		})
		fmt.Fprintf(w, "\n}\n")
	})

	// classes
	r.Get("/v2/classes", counter, GetClasses)
	r.Post("/v2/classes", counter, auth, binding.Json(ClassGroup{}), PostClass)
	r.Put("/v2/classes/:class_id", counter, auth, binding.Json(ClassGroup{}), PutClass)
	r.Delete("/v2/classes/:class_id", counter, auth, DeleteClass)

	// teacher accounts
	r.Get("/v2/teachers", counter, auth, GetTeachers)
	r.Post("/v2/teachers", counter, auth, binding.Json(Teacher{}), PostTeacher)
	r.Delete("/v2/teachers/:username", counter, auth, DeleteTeacher)

	// assignments
	r.Get("/v2/assignments", counter, GetAssignments)
	r.Get("/v2/assignments/:assignment_id", counter, GetAssignment)
	r.Post("/v2/assignments", counter, auth, binding.Json(AssignmentUpload{}), PostAssignment)
	r.Put("/v2/assignments/:assignment_id", counter, auth, binding.Json(AssignmentUpload{}), PutAssignment)
	r.Delete("/v2/assignments/:assignment_id", counter, auth, DeleteAssignment)

	// submissions
	r.Get("/v2/submissions", counter, GetSubmissions)
	r.Get("/v2/submissions/:submission_id", counter, GetSubmission)
	r.Get("/v2/submissions/:submission_id/feedback", counter, GetSubmissionFeedback)
	r.Post("/v2/submissions", counter, binding.Json(SubmissionUpload{}), PostSubmission)
	r.Delete("/v2/submissions/:submission_id", counter, auth, DeleteSubmission)
	r.Post("/v2/submissions/:submission_id/grade", counter, auth, binding.Json(GradeRequest{}), PostGrade)

	// auto-grade pipeline socket
	r.Get("/v2/sockets/grading/:submission_id", SocketAutoGrade)

	// class dashboard
	r.Get("/v2/classes/:class_id/dashboard", counter, auth, GetClassDashboard)

	// note: this expects to run behind a TLS-terminating proxy
	log.Printf("accepting connections on %s", port)
	if err := http.ListenAndServe(port, m); err != nil {
		log.Fatalf("ListenAndServe: %v", err)
	}
}

func setupDB(path string) *sql.DB {
	meddler.Default = meddler.SQLite

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("error creating database directory: %v", err)
	}

	options :=
		"?" + "mode=rwc" +
			"&" + "_busy_timeout=10000" +
			"&" + "_cache_size=-20000" +
			"&" + "_journal_mode=WAL" +
			"&" + "_synchronous=NORMAL" +
			"&" + "_temp_store=MEMORY"
	db, err := sql.Open("sqlite3", path+options)
	if err != nil {
		log.Fatalf("error opening database: %v", err)
	}
	if err = createSchema(db); err != nil {
		log.Fatalf("error creating database schema: %v", err)
	}

	return db
}

func loggedHTTPErrorf(w http.ResponseWriter, status int, format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	log.Print(logPrefix() + msg)
	http.Error(w, msg, status)
	return fmt.Errorf("%s", msg)
}

func loggedErrorf(f string, params ...interface{}) error {
	log.Print(logPrefix() + fmt.Sprintf(f, params...))
	return fmt.Errorf(f, params...)
}

// gatewayHTTPErrorf maps a gateway failure onto an HTTP status so a
// client can tell a retryable transport problem from a misconfigured
// endpoint or a failure reported by the backend itself.
func gatewayHTTPErrorf(w http.ResponseWriter, err error, format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	switch err.(type) {
	case *TransportError, *ConfigurationError:
		return loggedHTTPErrorf(w, http.StatusBadGateway, "%s: %v", msg, err)
	case *ApplicationError:
		return loggedHTTPErrorf(w, http.StatusConflict, "%s: %v", msg, err)
	default:
		return loggedHTTPErrorf(w, http.StatusInternalServerError, "%s: %v", msg, err)
	}
}

func parseParamID(w http.ResponseWriter, name, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", loggedHTTPErrorf(w, http.StatusBadRequest, "missing %s in URL", name)
	}
	return s, nil
}

func logPrefix() string {
	prefix := ""
	if _, file, line, ok := runtime.Caller(2); ok {
		if slash := strings.LastIndex(file, "/"); slash >= 0 {
			file = file[slash+1:]
		}
		prefix = fmt.Sprintf("%s:%d: ", file, line)
	}
	return prefix
}

func unBase64(s string) string {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return string(raw)
	}
	return s
}

var (
	hits                  int
	hitsCounter           = expvar.NewInt("hits")
	slowest               float64
	slowestCounter        = expvar.NewFloat("slowestSeconds")
	slowestPathCounter    = expvar.NewString("slowestPath")
	slowestTimeCounter    = expvar.NewString("slowestTime")
	totalSeconds          float64
	totalSecondsCounter   = expvar.NewFloat("totalSeconds")
	averageSecondsCounter = expvar.NewFloat("averageSeconds")
	errorsCounter         = expvar.NewInt("errors")
	goroutineCounter      = expvar.NewInt("goroutines")
)
