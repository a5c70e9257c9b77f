package credentialsrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-client/credentials"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
)

var _ credentials.Repo = (*FakeCredentialsRepo)(nil)

type FakeCredentialsRepo struct {
	values   map[string]string
	failWith error
	reads    int
	lock     sync.RWMutex
}

func NewFakeCredentialsRepo() *FakeCredentialsRepo {
	return &FakeCredentialsRepo{
		values: make(map[string]string),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (cr *FakeCredentialsRepo) FailWith(err error) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.failWith = err
}

// Reads counts Get calls.
func (cr *FakeCredentialsRepo) Reads() int {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return cr.reads
}

func (cr *FakeCredentialsRepo) Get(_ context.Context, key string) (string, error) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.reads++
	if cr.failWith != nil {
		return "", cr.failWith
	}
	v, ok := cr.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (cr *FakeCredentialsRepo) Set(_ context.Context, key, value string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	if cr.failWith != nil {
		return cr.failWith
	}
	cr.values[key] = value
	return nil
}

func (cr *FakeCredentialsRepo) Delete(_ context.Context, keys ...string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	if cr.failWith != nil {
		return cr.failWith
	}
	for _, k := range keys {
		delete(cr.values, k)
	}
	return nil
}
