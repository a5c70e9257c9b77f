package leavecacherepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/leavecache"
)

var _ leavecache.Repo = (*FakeLeaveCacheRepo)(nil)

type FakeLeaveCacheRepo struct {
	lists    map[string][]leave.Request
	failWith error
	replaces int
	lock     sync.RWMutex
}

func NewFakeLeaveCacheRepo() *FakeLeaveCacheRepo {
	return &FakeLeaveCacheRepo{
		lists: make(map[string][]leave.Request),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (lr *FakeLeaveCacheRepo) FailWith(err error) {
	lr.lock.Lock()
	defer lr.lock.Unlock()
	lr.failWith = err
}

// Replaces counts ReplaceAll calls that wrote data.
func (lr *FakeLeaveCacheRepo) Replaces() int {
	lr.lock.RLock()
	defer lr.lock.RUnlock()
	return lr.replaces
}

func (lr *FakeLeaveCacheRepo) ReadAll(_ context.Context, ownerID string) ([]leave.Request, error) {
	lr.lock.RLock()
	defer lr.lock.RUnlock()
	if lr.failWith != nil {
		return nil, lr.failWith
	}
	out := append([]leave.Request{}, lr.lists[ownerID]...)
	leave.SortBySubmissionDesc(out)
	return out, nil
}

func (lr *FakeLeaveCacheRepo) ReplaceAll(_ context.Context, ownerID string, reqs []leave.Request) error {
	lr.lock.Lock()
	defer lr.lock.Unlock()
	if lr.failWith != nil {
		return lr.failWith
	}
	if len(reqs) == 0 {
		return nil
	}
	byID := make(map[int64]int, len(reqs))
	list := make([]leave.Request, 0, len(reqs))
	for _, r := range reqs {
		if i, ok := byID[r.ID]; ok {
			list[i] = r
			continue
		}
		byID[r.ID] = len(list)
		list = append(list, r)
	}
	lr.lists[ownerID] = list
	lr.replaces++
	return nil
}

func (lr *FakeLeaveCacheRepo) Clear(_ context.Context, ownerID string) error {
	lr.lock.Lock()
	defer lr.lock.Unlock()
	if lr.failWith != nil {
		return lr.failWith
	}
	delete(lr.lists, ownerID)
	return nil
}
