package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jrsteele09/go-hr-client/attendance"
	"github.com/jrsteele09/go-hr-client/hrapi"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/profile"
)

type command struct {
	name         string
	summary      string
	needsSession bool
	setup        func(fs *flag.FlagSet) func(ctx context.Context, a *app) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func init() {
	register(command{name: "status", summary: "check the HR API is reachable", setup: statusCmd})
	register(command{name: "login", summary: "sign in: -id E1 -password ...", setup: loginCmd})
	register(command{name: "logout", summary: "sign out and forget local credentials", setup: logoutCmd})
	register(command{name: "whoami", summary: "show the session state", setup: whoamiCmd})
	register(command{name: "profile", summary: "show the employee profile", needsSession: true, setup: profileCmd})
	register(command{name: "profile-update", summary: "edit profile: -name -email -contact", needsSession: true, setup: profileUpdateCmd})
	register(command{name: "balance", summary: "show leave balances", needsSession: true, setup: balanceCmd})
	register(command{name: "types", summary: "list leave types", needsSession: true, setup: typesCmd})
	register(command{name: "leaves", summary: "list leave requests, cached first [-refresh]", needsSession: true, setup: leavesCmd})
	register(command{name: "leave-submit", summary: "request leave: -type -start -end -reason", needsSession: true, setup: leaveSubmitCmd})
	register(command{name: "leave-cancel", summary: "cancel a pending request: -id", needsSession: true, setup: leaveCancelCmd})
	register(command{name: "attendance-register", summary: "assign an NFC tag: -employee -name -tag", setup: attendanceRegisterCmd})
	register(command{name: "attendance-scan", summary: "read tag IDs from stdin: -mode entry|exit", setup: attendanceScanCmd})
	register(command{name: "attendance-log", summary: "show attendance records: -employee [-limit]", setup: attendanceLogCmd})
}

func statusCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		status, err := a.api.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	}
}

func loginCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	employeeID := fs.String("id", "", "employee ID")
	password := fs.String("password", "", "password")
	return func(ctx context.Context, a *app) error {
		if *employeeID == "" || *password == "" {
			return apperrors.ValidationError("please enter both employee ID and password")
		}
		if a.session.State().IsAuthenticated() {
			a.session.Logout(ctx)
		}
		if err := a.session.Login(ctx, hrapi.Credentials{EmployeeID: *employeeID, Password: *password}); err != nil {
			return errors.New(apperrors.UserMessage(err, "Login failed. Please check your credentials."))
		}
		printProfile(a.session.State().Profile)
		return nil
	}
}

func logoutCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		a.session.Logout(ctx)
		fmt.Println("Logged out")
		return nil
	}
}

func whoamiCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		state := a.session.State()
		fmt.Printf("Session: %s\n", state.Status)
		if state.IsAuthenticated() {
			printProfile(state.Profile)
		}
		return nil
	}
}

func profileCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		p, err := a.session.RefreshAndSetProfile(ctx)
		if err != nil {
			return err
		}
		printProfile(p)
		return nil
	}
}

func profileUpdateCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	contact := fs.String("contact", "", "contact number")
	return func(ctx context.Context, a *app) error {
		update := profile.Update{Name: *name, Email: *email, ContactNumber: *contact}
		if current := a.session.State().Profile; current != nil {
			if update.Name == "" {
				update.Name = current.Name
			}
			if update.Email == "" {
				update.Email = current.Email
			}
		}
		p, err := a.session.UpdateProfile(ctx, update)
		if err != nil {
			return err
		}
		fmt.Println("Profile updated")
		printProfile(p)
		return nil
	}
}

func balanceCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		b, err := a.api.LeaveBalance(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Annual leave: %g days\nSick leave:   %g days\n", b.AnnualLeaveBalance, b.SickLeaveBalance)
		return nil
	}
}

func typesCmd(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		types, err := a.api.LeaveTypes(ctx)
		if err != nil {
			return err
		}
		for _, t := range types {
			fmt.Printf("%d\t%s\n", t.ID, t.Name)
		}
		return nil
	}
}

func leavesCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	refresh := fs.Bool("refresh", false, "fetch again after the first load")
	return func(ctx context.Context, a *app) error {
		result, err := a.leaves.LoadList(ctx)
		if err != nil {
			return err
		}
		if *refresh {
			result, err = a.leaves.Refresh(ctx)
			if err != nil {
				return err
			}
		}
		if result.Stale {
			fmt.Println("(offline, showing saved list)")
		}
		return nil
	}
}

func leaveSubmitCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	typeID := fs.Int64("type", 0, "leave type ID (see: types)")
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD")
	reason := fs.String("reason", "", "reason")
	return func(ctx context.Context, a *app) error {
		startDate, err := leave.ParseDate(*start)
		if err != nil {
			return apperrors.ValidationError("%s", err)
		}
		endDate, err := leave.ParseDate(*end)
		if err != nil {
			return apperrors.ValidationError("%s", err)
		}
		created, err := a.leaves.Submit(ctx, leave.NewRequest{LeaveTypeID: *typeID, StartDate: startDate, EndDate: endDate, Reason: *reason})
		if err != nil {
			return err
		}
		fmt.Printf("Leave request %d submitted\n", created.ID)
		return nil
	}
}

func leaveCancelCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	id := fs.Int64("id", 0, "leave request ID")
	return func(ctx context.Context, a *app) error {
		if _, err := a.leaves.LoadList(ctx); err != nil {
			return err
		}
		msg, err := a.leaves.Cancel(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
}

func attendanceRegisterCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	employeeID := fs.String("employee", "", "employee ID")
	name := fs.String("name", "", "employee name")
	tag := fs.String("tag", "", "NFC tag ID")
	return func(ctx context.Context, a *app) error {
		if err := a.attendance.RegisterEmployee(ctx, attendance.Employee{ID: *employeeID, Name: *name, NFCTag: *tag}); err != nil {
			return err
		}
		fmt.Printf("Tag %s assigned to %s\n", strings.ToUpper(*tag), *name)
		return nil
	}
}

func attendanceScanCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	modeFlag := fs.String("mode", string(attendance.ModeEntry), "entry or exit")
	return func(ctx context.Context, a *app) error {
		mode, err := attendance.ParseMode(*modeFlag)
		if err != nil {
			return apperrors.ValidationError("%s", err)
		}
		fmt.Fprintf(os.Stderr, "Scanning for %s. Enter one tag ID per line, Ctrl-D to finish.\n", mode)

		outcomes := make(chan attendance.Outcome)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range outcomes {
				printOutcome(o)
			}
		}()

		err = a.attendance.Run(ctx, attendance.NewReaderScanner(os.Stdin), func() attendance.Mode { return mode }, outcomes)
		close(outcomes)
		wg.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func attendanceLogCmd(fs *flag.FlagSet) func(context.Context, *app) error {
	employeeID := fs.String("employee", "", "employee ID")
	limit := fs.Int("limit", 20, "maximum records")
	return func(ctx context.Context, a *app) error {
		records, err := a.attendance.Log(ctx, *employeeID, *limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No attendance records")
		}
		for _, r := range records {
			fmt.Printf("%s\t%-5s\t%s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Type, r.ID)
		}
		return nil
	}
}

func printOutcome(o attendance.Outcome) {
	switch {
	case errors.Is(o.Err, apperrors.ErrNotFound):
		fmt.Printf("Tag %s: no employee associated with this NFC tag\n", o.Event.TagID)
	case o.Err != nil && o.Event.TagID == "":
		fmt.Printf("Scan error: %s\n", o.Err)
	case o.Err != nil:
		fmt.Printf("Tag %s: failed to record attendance: %s\n", o.Event.TagID, o.Err)
	default:
		fmt.Printf("Attendance (%s) recorded for %s\n", o.Record.Type, o.Employee.Name)
	}
}

func printProfile(p *profile.Profile) {
	if p == nil {
		fmt.Println("(no profile loaded)")
		return
	}
	fmt.Printf("%s (%s)\n", p.Name, p.EmployeeID)
	for _, field := range [][2]string{
		{"Email", p.Email},
		{"Department", p.Department},
		{"Position", p.Position},
		{"Contact", p.ContactNumber},
		{"Joined", p.JoiningDate},
	} {
		if field[1] != "" {
			fmt.Printf("  %-11s %s\n", field[0]+":", field[1])
		}
	}
}
