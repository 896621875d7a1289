package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/gcfg.v1"

	. "github.com/hongclass/speakgrinder/types"
)

func CommandNewClass(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) < 1 {
		log.Fatalf("Usage: %s newclass <name>", os.Args[0])
	}

	class := &ClassGroup{Name: strings.Join(args, " ")}
	saved := new(ClassGroup)
	mustPostObject("/classes", nil, class, saved)
	fmt.Printf("created class %s: %s\n", saved.ID, saved.Name)
}

func CommandNewTeacher(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s newteacher <username>", os.Args[0])
	}
	username := args[0]

	fmt.Printf("password for new account %s: ", username)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("error reading password: %v", err)
	}
	password = strings.TrimRight(password, "\r\n")

	teacher := &Teacher{Username: username, Password: password}
	saved := new(Teacher)
	mustPostObject("/teachers", nil, teacher, saved)
	fmt.Printf("created teacher account %s\n", saved.Username)
}

func CommandNewAssignment(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)

	classID, _ := cmd.Flags().GetString("class")
	title, _ := cmd.Flags().GetString("title")
	date, _ := cmd.Flags().GetString("date")
	due, _ := cmd.Flags().GetString("due")
	freestyle, _ := cmd.Flags().GetBool("freestyle")

	if classID == "" || title == "" || due == "" {
		log.Fatalf("newassignment requires --class, --title, and --due")
	}
	if date == "" {
		date = time.Now().Format(DateFormat)
	}

	upload := &AssignmentUpload{
		Assignment: Assignment{
			ClassID:      classID,
			Title:        title,
			AssignedDate: date,
			DueDate:      due,
			IsFreestyle:  freestyle,
		},
	}
	for _, path := range args {
		upload.SampleVideos = append(upload.SampleVideos, mustReadMediaFile(path))
	}
	if freestyle && len(upload.SampleVideos) > 0 {
		log.Fatalf("a freestyle assignment cannot have sample videos")
	}

	if len(upload.SampleVideos) > 0 {
		fmt.Printf("uploading %d sample video%s for transcription; this can take a while\n",
			len(upload.SampleVideos), plural(len(upload.SampleVideos)))
	}
	saved := new(Assignment)
	mustPostObject("/assignments", nil, upload, saved)
	fmt.Printf("created assignment %s: %s (due %s)\n", saved.ID, saved.Title, saved.DueDate)
	if saved.SampleVideoTranscript != "" {
		fmt.Printf("\nsample transcript:\n%s\n", saved.SampleVideoTranscript)
	}
}

func mustReadMediaFile(path string) *MediaFile {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		log.Fatalf("error reading %s: %v", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &MediaFile{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// RosterConfig is the format of a setup roster file.
type RosterConfig struct {
	Class map[string]*struct {
		Name string
	}
	Teacher map[string]*struct {
		Password string
	}
}

func CommandSetup(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s setup <roster.cfg>", os.Args[0])
	}

	roster := new(RosterConfig)
	if err := gcfg.ReadFileInto(roster, args[0]); err != nil {
		log.Fatalf("error parsing %s: %v", args[0], err)
	}

	existingClasses := []*ClassGroup{}
	mustGetObject("/classes", nil, &existingClasses)
	haveClass := make(map[string]bool)
	for _, class := range existingClasses {
		haveClass[class.ID] = true
	}

	existingTeachers := []*Teacher{}
	mustGetObject("/teachers", nil, &existingTeachers)
	haveTeacher := make(map[string]bool)
	for _, teacher := range existingTeachers {
		haveTeacher[teacher.Username] = true
	}

	created := 0
	for id, elt := range roster.Class {
		if haveClass[id] {
			fmt.Printf("class %s already exists, skipping\n", id)
			continue
		}
		class := &ClassGroup{ID: id, Name: elt.Name}
		mustPostObject("/classes", nil, class, nil)
		fmt.Printf("created class %s: %s\n", id, elt.Name)
		created++
	}
	for username, elt := range roster.Teacher {
		if haveTeacher[username] {
			fmt.Printf("teacher %s already exists, skipping\n", username)
			continue
		}
		teacher := &Teacher{Username: username, Password: elt.Password}
		mustPostObject("/teachers", nil, teacher, nil)
		fmt.Printf("created teacher account %s\n", username)
		created++
	}
	fmt.Printf("setup finished: %d record%s created\n", created, plural(created))
}
