package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-hr-client/attendance"
	"github.com/jrsteele09/go-hr-client/credentials"
	"github.com/jrsteele09/go-hr-client/gateway"
	"github.com/jrsteele09/go-hr-client/hrapi"
	"github.com/jrsteele09/go-hr-client/internal/config"
	"github.com/jrsteele09/go-hr-client/internal/database"
	"github.com/jrsteele09/go-hr-client/leavecache"
	"github.com/jrsteele09/go-hr-client/leavesync"
	"github.com/jrsteele09/go-hr-client/session"
	"github.com/rs/zerolog/log"
)

// app holds every component for one CLI invocation, built in dependency order.
type app struct {
	db         *database.DB
	store      *credentials.Store
	api        *hrapi.Client
	session    *session.Manager
	leaves     *leavesync.Controller
	attendance *attendance.Recorder
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	db, err := database.Open(ctx, database.Config{Path: c.GetDatabasePath()})
	if err != nil {
		return nil, err
	}

	cache, err := leavecache.NewGormRepo(ctx, db.Gorm)
	if err != nil {
		db.Close()
		return nil, err
	}
	attendanceRepo, err := attendance.NewGormRepo(ctx, db.Gorm)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := credentials.NewStore(credentials.NewSQLiteRepo(db.SQL))
	gw := gateway.New(c.GetAPIBaseURL(), store,
		gateway.WithTimeout(c.GetAPITimeout()),
		gateway.WithRefreshCoalescing(c.GetRefreshCoalescing()),
	)
	api := hrapi.New(gw)

	var leaves *leavesync.Controller
	mgr := session.NewManager(api, store, session.WithLogoutHook(func(ctx context.Context, ownerID string) {
		if leaves != nil {
			leaves.Reset()
		}
		if ownerID == "" {
			return
		}
		if err := cache.Clear(ctx, ownerID); err != nil {
			log.Warn().Err(err).Msg("Failed to clear leave cache on logout")
		}
	}))
	leaves = leavesync.NewController(api, cache, mgr.OwnerID, leavesync.WithView(consoleView{}))
	gw.OnSessionExpired(mgr.HandleSessionExpired)

	if err := mgr.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &app{
		db:         db,
		store:      store,
		api:        api,
		session:    mgr,
		leaves:     leaves,
		attendance: attendance.NewRecorder(attendanceRepo),
	}, nil
}

func (a *app) Close() {
	a.session.Close()
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
