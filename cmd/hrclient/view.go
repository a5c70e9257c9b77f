package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/leavesync"
)

// consoleView prints each published leave list as a table.
type consoleView struct{}

func (consoleView) ShowLeaveRequests(reqs []leave.Request, source leavesync.Source) {
	fmt.Printf("\nLeave requests (%s):\n", source)
	if len(reqs) == 0 {
		fmt.Println("  no leave requests")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tTYPE\tFROM\tTO\tSTATUS\tSUBMITTED\tREASON")
	for _, r := range reqs {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.LeaveTypeName, r.StartDate, r.EndDate, r.Status, r.SubmissionDate.Local().Format("2006-01-02 15:04"), r.Reason)
	}
	w.Flush()
}

func (consoleView) ShowLoadError(err error) {
	fmt.Fprintf(os.Stderr, "Could not load leave requests: %s\n", err)
}

func (consoleView) SetRefreshing(bool) {}
