package session

import "github.com/jrsteele09/go-hr-client/profile"

// Status is the authentication phase of the session.
type Status int

const (
	Unauthenticated Status = iota
	Authenticating
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is a snapshot of the session. Token is non-empty exactly when Status
// is Authenticated. Consumers should not route on Status while Loading is set.
type State struct {
	Status  Status
	Token   string
	Profile *profile.Profile
	Loading bool
}

// IsAuthenticated reports whether the snapshot holds a usable access token.
func (s State) IsAuthenticated() bool {
	return s.Status == Authenticated && s.Token != ""
}
