package leavecache

import (
	"context"

	"github.com/jrsteele09/go-hr-client/leave"
)

// Repo is the local read-through cache of the leave request list. Entries are
// scoped by owner so one device can hold several users' lists without mixing them.
type Repo interface {
	// ReadAll returns the cached requests, most recent submission first. An
	// empty cache is not an error.
	ReadAll(ctx context.Context, ownerID string) ([]leave.Request, error)

	// ReplaceAll atomically swaps the owner's cached list for reqs. An empty
	// reqs leaves the cache untouched.
	ReplaceAll(ctx context.Context, ownerID string, reqs []leave.Request) error

	// Clear drops the owner's cached list
	Clear(ctx context.Context, ownerID string) error
}

// dedupe keeps the last occurrence of each ID.
func dedupe(reqs []leave.Request) []leave.Request {
	index := make(map[int64]int, len(reqs))
	out := make([]leave.Request, 0, len(reqs))
	for _, r := range reqs {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
