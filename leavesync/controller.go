package leavesync

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-client/hrapi"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/leavecache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source says where a published list came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceServer
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceServer:
		return "server"
	default:
		return "none"
	}
}

// View receives list updates. Calls arrive on the goroutine running the
// controller operation.
type View interface {
	ShowLeaveRequests(reqs []leave.Request, source Source)
	ShowLoadError(err error)
	SetRefreshing(refreshing bool)
}

// LeaveAPI is the part of the HR API the controller needs.
type LeaveAPI interface {
	LeaveRequests(ctx context.Context, params hrapi.ListParams) (leave.ListPage, error)
	SubmitLeaveRequest(ctx context.Context, req leave.NewRequest) (leave.Request, error)
	CancelLeaveRequest(ctx context.Context, id int64) (string, error)
}

// Result is what a load ended up showing. Stale is set when the server could
// not be reached and the cached list was kept.
type Result struct {
	Items  []leave.Request
	Source Source
	Stale  bool
}

// Controller serves the leave list from the cache first, then reconciles it
// with the server.
type Controller struct {
	api    LeaveAPI
	cache  leavecache.Repo
	owner  func() string
	view   View
	logger zerolog.Logger

	lock       sync.Mutex
	itemsOwner string
	items      []leave.Request
	source     Source
}

type Option func(*Controller)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithView sets the view updates are published to.
func WithView(view View) Option {
	return func(c *Controller) {
		c.view = view
	}
}

// NewController builds a controller. owner returns the signed-in user the
// cache is scoped to; an empty owner bypasses the cache.
func NewController(api LeaveAPI, cache leavecache.Repo, owner func() string, options ...Option) *Controller {
	c := &Controller{
		api:    api,
		cache:  cache,
		owner:  owner,
		view:   nopView{},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// LoadList publishes the cached list, if any, before fetching from the server.
// A fetch failure is only returned when there was nothing cached to show.
func (c *Controller) LoadList(ctx context.Context) (Result, error) {
	owner := c.owner()

	var cached []leave.Request
	if owner != "" {
		var err error
		cached, err = c.cache.ReadAll(ctx, owner)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to read leave cache")
			cached = nil
		}
	}
	if len(cached) > 0 && ctx.Err() == nil {
		c.set(owner, cached, SourceCache)
		c.view.ShowLeaveRequests(cached, SourceCache)
	}

	return c.fetch(ctx, owner, cached)
}

// Refresh fetches again without re-reading the cache; the list already shown
// stands in for it.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	owner := c.owner()
	return c.fetch(ctx, owner, c.shownFor(owner))
}

// Submit creates a leave request and reloads the list.
func (c *Controller) Submit(ctx context.Context, req leave.NewRequest) (leave.Request, error) {
	created, err := c.api.SubmitLeaveRequest(ctx, req)
	if err != nil {
		return leave.Request{}, err
	}
	if _, err := c.LoadList(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Reload after submit failed")
	}
	return created, nil
}

// Cancel cancels a pending request that is in the current list and reloads.
func (c *Controller) Cancel(ctx context.Context, id int64) (string, error) {
	req, ok := leave.Find(c.shownFor(c.owner()), id)
	if !ok {
		return "", apperrors.ValidationError("leave request %d is not in the list", id)
	}
	if !req.IsPending() {
		return "", apperrors.ValidationError("only pending leave requests can be cancelled")
	}

	msg, err := c.api.CancelLeaveRequest(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := c.LoadList(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Reload after cancel failed")
	}
	return msg, nil
}

// Items returns the list last published for the current owner.
func (c *Controller) Items() []leave.Request {
	return c.shownFor(c.owner())
}

// Reset forgets the published list. Called when the signed-in user changes.
func (c *Controller) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.itemsOwner = ""
	c.items = nil
	c.source = SourceNone
}

func (c *Controller) fetch(ctx context.Context, owner string, shown []leave.Request) (Result, error) {
	c.view.SetRefreshing(true)
	defer c.view.SetRefreshing(false)

	page, err := c.api.LeaveRequests(ctx, hrapi.ListParams{})
	if ctx.Err() != nil {
		c.logger.Debug().Msg("Leave list load abandoned, discarding result")
		return Result{Items: shown, Source: c.sourceFor(owner), Stale: true}, ctx.Err()
	}
	if err != nil {
		if len(shown) > 0 {
			c.logger.Warn().Err(err).Msg("Leave list refresh failed, keeping cached list")
			return Result{Items: shown, Source: c.sourceFor(owner), Stale: true}, nil
		}
		c.view.ShowLoadError(err)
		return Result{}, errors.Wrap(err, "load leave requests")
	}

	fresh := page.Requests
	leave.SortBySubmissionDesc(fresh)
	c.set(owner, fresh, SourceServer)
	c.view.ShowLeaveRequests(fresh, SourceServer)

	if owner != "" {
		if err := c.cache.ReplaceAll(ctx, owner, fresh); err != nil {
			c.logger.Error().Err(err).Msg("Failed to update leave cache")
		}
	}
	return Result{Items: fresh, Source: SourceServer}, nil
}

func (c *Controller) set(owner string, items []leave.Request, source Source) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.itemsOwner = owner
	c.items = append([]leave.Request(nil), items...)
	c.source = source
}

// shownFor returns the published list when it belongs to owner.
func (c *Controller) shownFor(owner string) []leave.Request {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.itemsOwner != owner {
		return nil
	}
	return append([]leave.Request(nil), c.items...)
}

func (c *Controller) sourceFor(owner string) Source {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.itemsOwner != owner {
		return SourceNone
	}
	return c.source
}

type nopView struct{}

func (nopView) ShowLeaveRequests([]leave.Request, Source) {}
func (nopView) ShowLoadError(error)                       {}
func (nopView) SetRefreshing(bool)                        {}
