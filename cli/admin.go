package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	. "github.com/hongclass/speakgrinder/types"
)

func CommandRmClass(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s rmclass <class id>", os.Args[0])
	}
	mustDeleteObject("/classes/"+args[0], nil)
	fmt.Printf("deleted class %s\n", args[0])
}

func CommandRmTeacher(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s rmteacher <username>", os.Args[0])
	}
	mustDeleteObject("/teachers/"+args[0], nil)
	fmt.Printf("deleted teacher account %s\n", args[0])
}

func CommandRmAssignment(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s rmassignment <assignment id>", os.Args[0])
	}
	mustDeleteObject("/assignments/"+args[0], nil)
	fmt.Printf("deleted assignment %s\n", args[0])
}

func CommandRmSubmission(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)
	if len(args) != 1 {
		log.Fatalf("Usage: %s rmsubmission <submission id>", os.Args[0])
	}
	mustDeleteObject("/submissions/"+args[0], nil)
	fmt.Printf("deleted submission %s\n", args[0])
}

func CommandReload(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)

	status := new(SnapshotStatus)
	mustPostObject("/reload", nil, nil, status)
	fmt.Printf("snapshot reloaded; state is %s\n", status.State)
	for _, warning := range status.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}

func CommandFallback(cmd *cobra.Command, args []string) {
	mustLoadConfig(cmd)

	status := new(SnapshotStatus)
	mustPostObject("/fallback", nil, nil, status)
	fmt.Printf("fallback dataset loaded; state is %s\n", status.State)
	for _, warning := range status.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}
