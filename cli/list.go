package main

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	. "github.com/hongclass/speakgrinder/types"
)

func CommandClasses(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 0 {
		cmd.Help()
		return
	}

	classes := []*ClassGroup{}
	mustGetObject("/classes", nil, &classes)

	if len(classes) == 0 {
		fmt.Println("no classes found")
		return
	}
	for _, class := range classes {
		fmt.Printf("%-12s %s\n", class.ID, class.Name)
	}
}

func CommandTeachers(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 0 {
		cmd.Help()
		return
	}

	teachers := []*Teacher{}
	mustGetObject("/teachers", nil, &teachers)

	for _, teacher := range teachers {
		fmt.Printf("%-12s %s\n", teacher.ID, teacher.Username)
	}
}

func CommandAssignments(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)

	params := make(url.Values)
	if len(args) > 0 {
		params.Add("search", strings.Join(args, " "))
	}
	if class, _ := cmd.Flags().GetString("class"); class != "" {
		params.Add("class_id", class)
	}
	assignments := []*Assignment{}
	mustGetObject("/assignments", params, &assignments)

	if len(assignments) == 0 {
		fmt.Println("no assignments found")
		return
	}
	for _, asst := range assignments {
		kind := ""
		if asst.IsFreestyle {
			kind = " (freestyle)"
		}
		fmt.Printf("%-16s %-10s assigned %s, due %s: %s%s\n",
			asst.ID, asst.ClassID, asst.AssignedDate, asst.DueDate, asst.Title, kind)
	}
}

func CommandSubmissions(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 0 {
		cmd.Help()
		return
	}

	// one student's own list is a different view with no paging
	if student, _ := cmd.Flags().GetString("student"); student != "" {
		params := make(url.Values)
		params.Add("student", student)
		subs := []*Submission{}
		mustGetObject("/submissions", params, &subs)
		printSubmissions(subs)
		return
	}

	params := make(url.Values)
	if search, _ := cmd.Flags().GetString("search"); search != "" {
		params.Add("search", search)
	}
	if class, _ := cmd.Flags().GetString("class"); class != "" {
		params.Add("class_id", class)
	}
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		params.Add("status", status)
	}
	if sortKey, _ := cmd.Flags().GetString("sort"); sortKey != "" {
		params.Add("sort", sortKey)
	}
	if page, _ := cmd.Flags().GetInt("page"); page > 1 {
		params.Add("page", strconv.Itoa(page))
	}

	result := new(SubmissionPage)
	mustGetObject("/submissions", params, result)

	if result.Total == 0 {
		fmt.Println("no submissions found")
		return
	}
	printSubmissions(result.Items)
	fmt.Printf("\npage %d of %d (%d submission%s)\n",
		result.Page, result.TotalPages, result.Total, plural(result.Total))
}

func printSubmissions(subs []*Submission) {
	// due dates come from the assignments
	assignments := []*Assignment{}
	mustGetObject("/assignments", nil, &assignments)
	asstByID := make(map[string]*Assignment)
	for _, asst := range assignments {
		asstByID[asst.ID] = asst
	}

	now := time.Now()
	for _, sub := range subs {
		status := DeriveStatusAt(sub, asstByID[sub.AssignmentID], now)
		score := "    -"
		if sub.HasScore() {
			score = colorScore(*sub.Score)
		}
		title := "(deleted assignment)"
		if asst := asstByID[sub.AssignmentID]; asst != nil {
			title = asst.Title
		}
		fmt.Printf("%-16s %-20s %-10s %s  %s\n",
			sub.ID, sub.StudentName, status, score, title)
	}
}

// colorScore formats a score, colored by the same thresholds the web
// UI uses.
func colorScore(score float64) string {
	padded := fmt.Sprintf("%5.1f", score)
	switch ScoreColor(score) {
	case "green":
		return "\x1b[32m" + padded + "\x1b[0m"
	case "yellow":
		return "\x1b[33m" + padded + "\x1b[0m"
	default:
		return "\x1b[31m" + padded + "\x1b[0m"
	}
}

func CommandDashboard(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s dashboard <class id>", os.Args[0])
	}

	dash := new(ClassDashboard)
	mustGetObject("/classes/"+args[0]+"/dashboard", nil, dash)

	fmt.Printf("class %s: %d submission%s, %d graded, %d pending\n",
		dash.ClassID, dash.Total, plural(dash.Total), dash.NumGraded, dash.NumPending)
	if dash.NumGraded > 0 {
		fmt.Printf("average score: %.2f\n", dash.AverageScore)
	}
	for _, bucket := range dash.Histogram {
		fmt.Printf("  %-20s %s (%d)\n", bucket.Label, strings.Repeat("*", bucket.Count), bucket.Count)
	}
}

func CommandStatus(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)

	status := new(SnapshotStatus)
	mustGetObject("/snapshot/status", nil, status)

	fmt.Printf("snapshot state: %s\n", status.State)
	if status.Source != "" {
		fmt.Printf("loaded from %s at %s\n", status.Source, status.LoadedAt.Format(time.RFC1123))
	}
	for _, warning := range status.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}
