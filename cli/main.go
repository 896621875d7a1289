package main

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"github.com/spf13/cobra"

	. "github.com/hongclass/speakgrinder/types"
)

const (
	perUserDotFile = ".speakgrinderrc"
	urlPrefix      = "/v2"
)

var Config struct {
	Host      string `json:"host"`
	Cookie    string `json:"cookie"`
	apiReport bool
	apiDump   bool
}

func main() {
	log.SetFlags(0)

	cmdSpeakgrind := &cobra.Command{
		Use:   "speakgrind",
		Short: "Command-line interface to the speaking-assignment grader",
		Long: "A command-line tool to manage classes, assignments, and\n" +
			"student speaking submissions on a speakgrinder server.",
	}
	cmdSpeakgrind.PersistentFlags().BoolVarP(&Config.apiReport, "api", "", false, "report all API requests")
	cmdSpeakgrind.PersistentFlags().BoolVarP(&Config.apiDump, "api-dump", "", false, "dump API request and response data")

	cmdVersion := &cobra.Command{
		Use:   "version",
		Short: "print the version number of speakgrind",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("speakgrind " + CurrentVersion.Version)
		},
	}
	cmdSpeakgrind.AddCommand(cmdVersion)

	cmdLogin := &cobra.Command{
		Use:   "login <hostname> <username>",
		Short: "log in to a speakgrinder server",
		Long: "Log in with your teacher account. You will be prompted\n" +
			"for your password. The session is saved, so you should\n" +
			"normally only need to do this once per semester.",
		Run: CommandLogin,
	}
	cmdSpeakgrind.AddCommand(cmdLogin)

	cmdLogout := &cobra.Command{
		Use:   "logout",
		Short: "log out and discard the saved session",
		Run:   CommandLogout,
	}
	cmdSpeakgrind.AddCommand(cmdLogout)

	cmdClasses := &cobra.Command{
		Use:   "classes",
		Short: "list all classes",
		Run:   CommandClasses,
	}
	cmdSpeakgrind.AddCommand(cmdClasses)

	cmdNewClass := &cobra.Command{
		Use:   "newclass <name>",
		Short: "create a new class",
		Run:   CommandNewClass,
	}
	cmdSpeakgrind.AddCommand(cmdNewClass)

	cmdRmClass := &cobra.Command{
		Use:   "rmclass <class id>",
		Short: "delete a class",
		Run:   CommandRmClass,
	}
	cmdSpeakgrind.AddCommand(cmdRmClass)

	cmdTeachers := &cobra.Command{
		Use:   "teachers",
		Short: "list all teacher accounts",
		Run:   CommandTeachers,
	}
	cmdSpeakgrind.AddCommand(cmdTeachers)

	cmdNewTeacher := &cobra.Command{
		Use:   "newteacher <username>",
		Short: "create a new teacher account",
		Long: "Create a teacher account. You will be prompted for the\n" +
			"new account's password.",
		Run: CommandNewTeacher,
	}
	cmdSpeakgrind.AddCommand(cmdNewTeacher)

	cmdRmTeacher := &cobra.Command{
		Use:   "rmteacher <username>",
		Short: "delete a teacher account",
		Run:   CommandRmTeacher,
	}
	cmdSpeakgrind.AddCommand(cmdRmTeacher)

	cmdAssignments := &cobra.Command{
		Use:   "assignments [search terms]",
		Short: "list assignments, newest first",
		Run:   CommandAssignments,
	}
	cmdAssignments.Flags().StringP("class", "c", "", "only show assignments for this class ID")
	cmdSpeakgrind.AddCommand(cmdAssignments)

	cmdNewAssignment := &cobra.Command{
		Use:   "newassignment [sample video files]",
		Short: "create a new assignment",
		Long: "Create an assignment for a class. Any sample video files\n" +
			"given as arguments are uploaded and transcribed, and the\n" +
			"transcripts become the model the students are graded against.\n\n" +
			"   Example: speakgrind newassignment -c c1 -t 'My hobbies' -d 2026-09-01 -u 2026-09-08 sample.mp4",
		Run: CommandNewAssignment,
	}
	cmdNewAssignment.Flags().StringP("class", "c", "", "ID of the class the assignment belongs to")
	cmdNewAssignment.Flags().StringP("title", "t", "", "assignment title")
	cmdNewAssignment.Flags().StringP("date", "d", "", "assigned date (YYYY-MM-DD, default today)")
	cmdNewAssignment.Flags().StringP("due", "u", "", "due date (YYYY-MM-DD)")
	cmdNewAssignment.Flags().BoolP("freestyle", "f", false, "open topic: no sample comparison")
	cmdSpeakgrind.AddCommand(cmdNewAssignment)

	cmdRmAssignment := &cobra.Command{
		Use:   "rmassignment <assignment id>",
		Short: "delete an assignment",
		Run:   CommandRmAssignment,
	}
	cmdSpeakgrind.AddCommand(cmdRmAssignment)

	cmdSubmissions := &cobra.Command{
		Use:   "submissions",
		Short: "list submissions with filters, one page at a time",
		Run:   CommandSubmissions,
	}
	cmdSubmissions.Flags().StringP("search", "s", "", "search student names, file names, and assignment titles")
	cmdSubmissions.Flags().StringP("class", "c", "", "only show submissions for this class ID")
	cmdSubmissions.Flags().StringP("status", "t", "", "only show submissions with this status (pending/graded)")
	cmdSubmissions.Flags().StringP("sort", "o", "newest", "sort order: newest, oldest, or dueDate")
	cmdSubmissions.Flags().IntP("page", "p", 1, "page number")
	cmdSubmissions.Flags().StringP("student", "n", "", "show one student's submissions instead")
	cmdSpeakgrind.AddCommand(cmdSubmissions)

	cmdSubmit := &cobra.Command{
		Use:   "submit <assignment id> <recording file>",
		Short: "submit a student recording for grading",
		Long: "Upload a recording on a student's behalf. The server\n" +
			"transcribes it, checks the topic against the assignment's\n" +
			"sample, and grades it.",
		Run: CommandSubmit,
	}
	cmdSubmit.Flags().StringP("name", "n", "", "student's name (required)")
	cmdSpeakgrind.AddCommand(cmdSubmit)

	cmdRmSubmission := &cobra.Command{
		Use:   "rmsubmission <submission id>",
		Short: "delete a submission",
		Run:   CommandRmSubmission,
	}
	cmdSpeakgrind.AddCommand(cmdRmSubmission)

	cmdGrade := &cobra.Command{
		Use:   "grade <submission id> <score> [feedback]",
		Short: "assign a score and feedback by hand",
		Long: "Set a submission's score (0-10) and feedback directly,\n" +
			"overriding any generated grade. This also clears a topic\n" +
			"mismatch flag: you have looked at the work and accepted it.",
		Run: CommandGrade,
	}
	cmdSpeakgrind.AddCommand(cmdGrade)

	cmdAutoGrade := &cobra.Command{
		Use:   "autograde <submission id>",
		Short: "re-run the grading pipeline on a submission",
		Long: "Run the automatic grading pipeline on a submission's\n" +
			"existing transcript, streaming progress as it goes.",
		Run: CommandAutoGrade,
	}
	cmdSpeakgrind.AddCommand(cmdAutoGrade)

	cmdDashboard := &cobra.Command{
		Use:   "dashboard <class id>",
		Short: "show grading statistics for a class",
		Run:   CommandDashboard,
	}
	cmdSpeakgrind.AddCommand(cmdDashboard)

	cmdSetup := &cobra.Command{
		Use:   "setup <roster.cfg>",
		Short: "create classes and teacher accounts from a roster file",
		Long: "Read a roster config file and create every class and\n" +
			"teacher account it lists. Entries that already exist are\n" +
			"skipped.\n\n" +
			"   [class \"c1\"]\n" +
			"   name = Beginning Conversation\n\n" +
			"   [teacher \"mshong\"]\n" +
			"   password = changeme\n",
		Run: CommandSetup,
	}
	cmdSpeakgrind.AddCommand(cmdSetup)

	cmdStatus := &cobra.Command{
		Use:   "status",
		Short: "show the health of the server's data snapshot",
		Run:   CommandStatus,
	}
	cmdSpeakgrind.AddCommand(cmdStatus)

	cmdReload := &cobra.Command{
		Use:   "reload",
		Short: "make the server refresh its snapshot from the backend",
		Run:   CommandReload,
	}
	cmdSpeakgrind.AddCommand(cmdReload)

	cmdFallback := &cobra.Command{
		Use:   "fallback",
		Short: "load the server's built-in starter dataset",
		Long: "Replace the server's data snapshot with the built-in\n" +
			"starter dataset. Meant for demos and for trying the system\n" +
			"out before the backend sheets are set up.",
		Run: CommandFallback,
	}
	cmdSpeakgrind.AddCommand(cmdFallback)

	cmdSpeakgrind.Execute()
}

func CommandLogin(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		log.Fatalf("Usage: %s login <hostname> <username>", os.Args[0])
	}
	hostname, username := args[0], args[1]
	Config.Host = hostname

	fmt.Printf("password for %s: ", username)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("error reading password: %v", err)
	}
	password = strings.TrimRight(password, "\r\n")

	// the login request is the one call made without a session, and the
	// cookie comes back in a header, so it bypasses doRequest
	payload, err := json.Marshal(&LoginRequest{Username: username, Password: password})
	if err != nil {
		log.Fatalf("JSON error encoding login request: %v", err)
	}
	url := fmt.Sprintf("https://%s%s/sessions", Config.Host, urlPrefix)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("error connecting to %s: %v", Config.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("unexpected status from %s: %s", url, resp.Status)
		dumpBody(resp)
		log.Fatalf("giving up")
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == CookieName {
			Config.Cookie = fmt.Sprintf("%s=%s", cookie.Name, cookie.Value)
		}
	}
	if Config.Cookie == "" {
		log.Fatalf("server did not grant a session cookie")
	}

	// see if they need an upgrade
	checkVersion()

	// try it out by fetching the teacher record
	teacher := new(Teacher)
	mustGetObject("/users/me", nil, teacher)

	// save config for later use
	mustWriteConfig()

	fmt.Printf("login successful; welcome %s\n", teacher.Username)
}

func CommandLogout(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	mustDeleteObject("/sessions", nil)
	Config.Cookie = ""
	mustWriteConfig()
	fmt.Println("logged out")
}

func mustGetObject(path string, params url.Values, download interface{}) {
	doRequest(path, params, "GET", nil, download, false)
}

func mustPostObject(path string, params url.Values, upload interface{}, download interface{}) {
	doRequest(path, params, "POST", upload, download, false)
}

func mustPutObject(path string, params url.Values, upload interface{}, download interface{}) {
	doRequest(path, params, "PUT", upload, download, false)
}

func mustDeleteObject(path string, params url.Values) {
	doRequest(path, params, "DELETE", nil, nil, false)
}

func doRequest(path string, params url.Values, method string, upload interface{}, download interface{}, notfoundokay bool) bool {
	if !strings.HasPrefix(path, "/") {
		log.Panicf("doRequest path must start with /")
	}
	if method != "GET" && method != "POST" && method != "PUT" && method != "DELETE" {
		log.Panicf("doRequest only recognizes GET, POST, PUT, and DELETE methods")
	}
	url := fmt.Sprintf("https://%s%s%s", Config.Host, urlPrefix, path)
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		log.Fatalf("error creating http request: %v\n", err)
	}

	// add any parameters
	if params != nil && len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}

	if Config.apiReport {
		fmt.Printf("%s %s\n", method, req.URL)
	}

	// set the headers
	req.Header.Add("Cookie", Config.Cookie)
	if download != nil {
		req.Header.Add("Accept", "application/json")
		req.Header.Add("Accept-Encoding", "gzip")
	}

	// upload the payload if any
	if upload != nil && (method == "POST" || method == "PUT") {
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Content-Encoding", "gzip")
		payload := new(bytes.Buffer)
		gw := gzip.NewWriter(payload)
		uncompressed := new(bytes.Buffer)
		var jsontarget io.Writer
		if Config.apiDump {
			jsontarget = io.MultiWriter(gw, uncompressed)
		} else {
			jsontarget = gw
		}
		jw := json.NewEncoder(jsontarget)
		if err := jw.Encode(upload); err != nil {
			log.Fatalf("doRequest: JSON error encoding object to upload: %v", err)
		}
		if err := gw.Close(); err != nil {
			log.Fatalf("doRequest: gzip error encoding object to upload: %v", err)
		}
		req.Body = ioutil.NopCloser(payload)

		if Config.apiDump {
			fmt.Printf("Request data: %s\n", uncompressed)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("error connecting to %s: %v", Config.Host, err)
	}
	defer resp.Body.Close()
	if notfoundokay && resp.StatusCode == http.StatusNotFound {
		return false
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("unexpected status from %s: %s", url, resp.Status)
		dumpBody(resp)
		log.Fatalf("giving up")
	}

	// parse the result if any
	if download != nil {
		body := resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(body)
			if err != nil {
				log.Fatalf("failed to decompress gzip result: %v", err)
			}
			body = gz
			defer gz.Close()
		}
		decoder := json.NewDecoder(body)
		if err := decoder.Decode(download); err != nil {
			log.Fatalf("failed to parse result object from server: %v", err)
		}

		if Config.apiDump {
			raw, err := json.MarshalIndent(download, "", "    ")
			if err != nil {
				log.Fatalf("doRequest: JSON error encoding downloaded object: %v", err)
			}
			fmt.Printf("Response data: %s\n", raw)
		}

		return true
	}
	return false
}

func mustLoadConfig(cmd *cobra.Command) {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("unable to find home directory: %v", err)
	}
	if home == "" {
		log.Fatalf("home directory is not set")
	}
	configFile := filepath.Join(home, perUserDotFile)

	if raw, err := ioutil.ReadFile(configFile); err != nil {
		log.Fatalf("Unable to load config file; try running '%s login'\n", os.Args[0])
	} else if err := json.Unmarshal(raw, &Config); err != nil {
		log.Printf("failed to parse %s: %v", configFile, err)
		log.Fatalf("you may wish to try deleting the file and running '%s login' again\n", os.Args[0])
	}
	if Config.apiDump {
		Config.apiReport = true
	}

	checkVersion()
}

func mustWriteConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("unable to find home directory: %v", err)
	}
	if home == "" {
		log.Fatalf("home directory is not set")
	}
	configFile := filepath.Join(home, perUserDotFile)

	raw, err := json.MarshalIndent(&Config, "", "    ")
	if err != nil {
		log.Fatalf("JSON error encoding cookie file: %v", err)
	}
	raw = append(raw, '\n')

	if err = ioutil.WriteFile(configFile, raw, 0644); err != nil {
		log.Fatalf("error writing %s: %v", configFile, err)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func checkVersion() {
	server := new(Version)
	mustGetObject("/version", nil, server)
	current := semver.MustParse(CurrentVersion.Version)
	required := semver.MustParse(server.SpeakgrindVersionRequired)
	if required.GT(current) {
		log.Printf("this is speakgrind version %s, but the server requires %s or higher", CurrentVersion.Version, server.SpeakgrindVersionRequired)
		log.Fatalf("  you must upgrade to continue")
	}
	recommended := semver.MustParse(server.SpeakgrindVersionRecommended)
	if recommended.GT(current) {
		log.Printf("this is speakgrind version %s, but the server recommends %s or higher", CurrentVersion.Version, server.SpeakgrindVersionRecommended)
		log.Printf("  please upgrade as soon as possible")
	}
}

func dumpBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			log.Fatalf("failed to decompress gzip result: %v", err)
		}
		defer gz.Close()
		io.Copy(os.Stderr, gz)
	} else {
		io.Copy(os.Stderr, resp.Body)
	}
}
