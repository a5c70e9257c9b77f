package profile

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
)

// ID is the employee's server identifier. The API returns it as a number on
// /login and /profile, but it is kept as a string so opaque IDs also work.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Profile is the employee profile returned by GET /profile and cached on the
// device as the last known snapshot.
type Profile struct {
	ID            ID     `json:"id"`                       // Server identifier
	EmployeeID    string `json:"employee_id,omitempty"`    // Login identifier
	Name          string `json:"name,omitempty"`           // Full name
	Email         string `json:"email,omitempty"`          // Contact email
	Department    string `json:"department,omitempty"`     // Department name
	Position      string `json:"position,omitempty"`       // Job title
	ContactNumber string `json:"contact_number,omitempty"` // Phone number
	JoiningDate   string `json:"joining_date,omitempty"`   // YYYY-MM-DD, informational only
}

// Update holds the user editable profile fields sent with PUT /profile.
type Update struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number,omitempty"`
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks the fields the edit form requires.
func (u Update) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return apperrors.ValidationError("name cannot be empty")
	}
	if strings.TrimSpace(u.Email) == "" || !emailPattern.MatchString(u.Email) {
		return apperrors.ValidationError("please enter a valid email address")
	}
	return nil
}

// Decode parses a serialized profile snapshot.
func Decode(data string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode serializes a profile snapshot for the credential store.
func (p *Profile) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
