package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Mode is whether a scan clocks the employee in or out.
type Mode string

const (
	ModeEntry Mode = "entry"
	ModeExit  Mode = "exit"
)

// ParseMode accepts "entry"/"exit" and the aliases "in"/"out".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entry", "in":
		return ModeEntry, nil
	case "exit", "out":
		return ModeExit, nil
	}
	return "", fmt.Errorf("unknown attendance mode %q", s)
}

// Employee links an NFC tag to a person on this device.
type Employee struct {
	ID     string
	Name   string
	NFCTag string
}

// Record is one clock-in or clock-out.
type Record struct {
	ID         string
	EmployeeID string
	Type       Mode
	Timestamp  time.Time
	Latitude   *float64
	Longitude  *float64
}

// TagEvent is a tag discovered by a scanner.
type TagEvent struct {
	TagID     string
	NDEF      string // decoded NDEF text, if the tag carried any
	ScannedAt time.Time
}

// Outcome is the result of handling one TagEvent in Recorder.Run.
type Outcome struct {
	Event    TagEvent
	Employee *Employee
	Record   *Record
	Err      error
}
