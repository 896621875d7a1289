package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	. "github.com/hongclass/speakgrinder/types"
)

func CommandSubmit(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 2 {
		log.Fatalf("Usage: %s submit <assignment id> <recording file> --name <student name>", os.Args[0])
	}
	assignmentID, path := args[0], args[1]
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		log.Fatalf("submit requires --name with the student's name")
	}

	upload := &SubmissionUpload{
		Submission: Submission{
			StudentName:  name,
			AssignmentID: assignmentID,
		},
		Recording: mustReadMediaFile(path),
	}

	fmt.Println("uploading the recording for transcription and grading; this can take a while")
	saved := new(Submission)
	mustPostObject("/submissions", nil, upload, saved)

	switch {
	case saved.ContentMismatched:
		fmt.Printf("submission %s saved, but it does not seem to match the assignment topic\n", saved.ID)
		fmt.Println("a teacher will review it by hand")
	case saved.HasScore():
		fmt.Printf("submission %s graded: %.1f\n", saved.ID, *saved.Score)
		if saved.Feedback != "" {
			fmt.Printf("\n%s\n", saved.Feedback)
		}
	default:
		fmt.Printf("submission %s saved and waiting for a grade\n", saved.ID)
	}
}

func CommandGrade(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) < 2 {
		log.Fatalf("Usage: %s grade <submission id> <score> [feedback]", os.Args[0])
	}
	submissionID := args[0]
	score, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		log.Fatalf("score must be a number between 0 and 10: %v", err)
	}

	req := &GradeRequest{
		Score:    score,
		Feedback: strings.Join(args[2:], " "),
	}
	saved := new(Submission)
	mustPostObject("/submissions/"+submissionID+"/grade", nil, req, saved)
	fmt.Printf("submission %s graded: %.1f for %s\n", saved.ID, *saved.Score, saved.StudentName)
}

func CommandAutoGrade(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s autograde <submission id>", os.Args[0])
	}
	submissionID := args[0]

	// create a websocket connection to the server
	headers := make(http.Header)
	headers.Add("Cookie", Config.Cookie)
	url := "wss://" + Config.Host + urlPrefix + "/sockets/grading/" + submissionID
	socket, resp, err := websocket.DefaultDialer.Dial(url, headers)
	if err != nil {
		log.Printf("error dialing %s: %v", url, err)
		if resp != nil && resp.Body != nil {
			dumpBody(resp)
			resp.Body.Close()
		}
		log.Fatalf("giving up")
	}
	defer socket.Close()

	// listen for events until the pipeline finishes
	for {
		event := new(PipelineEvent)
		if err := socket.ReadJSON(event); err != nil {
			log.Fatalf("socket error reading event: %v", err)
		}

		switch event.Stage {
		case StageError:
			log.Printf("server returned an error:")
			log.Fatalf("   %s", event.Message)

		case StageDone:
			sub := event.Submission
			if sub == nil {
				log.Fatalf("no submission returned from server")
			}
			switch {
			case sub.ContentMismatched:
				fmt.Println("the submission does not seem to match the assignment topic")
				fmt.Println("it was left ungraded for review by hand")
			case sub.HasScore():
				fmt.Printf("graded: %.1f\n", *sub.Score)
				if sub.Feedback != "" {
					fmt.Printf("\n%s\n", sub.Feedback)
				}
			}
			return

		default:
			fmt.Printf("%s: %s\n", event.Stage, event.Message)
		}
	}
}
