package leavecache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-hr-client/internal/database"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/leavecache"
	leavecacherepofake "github.com/jrsteele09/go-hr-client/leavecache/repofake"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, path string) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func gormRepo(t *testing.T) leavecache.Repo {
	t.Helper()
	db := openDB(t, filepath.Join(t.TempDir(), "HRApp.db"))
	repo, err := leavecache.NewGormRepo(context.Background(), db.Gorm)
	require.NoError(t, err)
	return repo
}

func request(id int64, submitted time.Time, status leave.Status) leave.Request {
	return leave.Request{
		ID:             id,
		LeaveTypeID:    1,
		LeaveTypeName:  "Annual Leave",
		StartDate:      leave.NewDate(2026, 8, 3),
		EndDate:        leave.NewDate(2026, 8, 7),
		Reason:         "Summer break",
		Status:         status,
		SubmissionDate: submitted,
	}
}

func TestRepo(t *testing.T) {
	repos := map[string]func(t *testing.T) leavecache.Repo{
		"fake": func(*testing.T) leavecache.Repo { return leavecacherepofake.NewFakeLeaveCacheRepo() },
		"gorm": gormRepo,
	}

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	collection := []leave.Request{
		request(1, base, leave.StatusApproved),
		request(3, base.Add(48*time.Hour), leave.StatusPending),
		request(2, base.Add(24*time.Hour), leave.StatusRejected),
	}
	expected := []leave.Request{collection[1], collection[2], collection[0]}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("empty cache", func(t *testing.T) {
				repo := newRepo(t)
				reqs, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Empty(t, reqs)
			})

			t.Run("ordered by submission date", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.ReplaceAll(ctx, "1", collection))
				reqs, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Equal(t, expected, reqs)
			})

			t.Run("replace is idempotent", func(t *testing.T) {
				repo := newRepo(t)
				for i := 0; i < 2; i++ {
					require.NoError(t, repo.ReplaceAll(ctx, "1", collection))
					reqs, err := repo.ReadAll(ctx, "1")
					require.NoError(t, err)
					require.Equal(t, expected, reqs)
				}
			})

			t.Run("empty replace keeps existing data", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.ReplaceAll(ctx, "1", collection))
				require.NoError(t, repo.ReplaceAll(ctx, "1", nil))
				require.NoError(t, repo.ReplaceAll(ctx, "1", []leave.Request{}))
				reqs, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Equal(t, expected, reqs)
			})

			t.Run("replace drops rows missing from the new list", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.ReplaceAll(ctx, "1", collection))
				cancelled := request(3, base.Add(48*time.Hour), leave.StatusCancelled)
				require.NoError(t, repo.ReplaceAll(ctx, "1", []leave.Request{cancelled}))
				reqs, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Equal(t, []leave.Request{cancelled}, reqs)
			})

			t.Run("ties break on id", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.ReplaceAll(ctx, "1", []leave.Request{
					request(4, base, leave.StatusPending),
					request(9, base, leave.StatusPending),
					request(4, base, leave.StatusApproved),
				}))
				reqs, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Len(t, reqs, 2)
				require.Equal(t, int64(9), reqs[0].ID)
				require.Equal(t, leave.StatusApproved, reqs[1].Status, "last duplicate wins")
			})

			t.Run("owners are isolated", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.ReplaceAll(ctx, "1", collection))
				require.NoError(t, repo.ReplaceAll(ctx, "2", collection[:1]))

				other, err := repo.ReadAll(ctx, "2")
				require.NoError(t, err)
				require.Len(t, other, 1)

				require.NoError(t, repo.Clear(ctx, "2"))
				other, err = repo.ReadAll(ctx, "2")
				require.NoError(t, err)
				require.Empty(t, other)

				mine, err := repo.ReadAll(ctx, "1")
				require.NoError(t, err)
				require.Len(t, mine, 3)
			})
		})
	}
}

func TestGormRepo_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "HRApp.db")
	submitted := time.Date(2026, 2, 14, 8, 15, 30, 123456789, time.UTC)

	db, err := database.Open(ctx, database.Config{Path: path})
	require.NoError(t, err)
	repo, err := leavecache.NewGormRepo(ctx, db.Gorm)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceAll(ctx, "1", []leave.Request{request(5, submitted, leave.StatusPending)}))
	require.NoError(t, db.Close())

	reopened := openDB(t, path)
	repo, err = leavecache.NewGormRepo(ctx, reopened.Gorm)
	require.NoError(t, err)
	reqs, err := repo.ReadAll(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, []leave.Request{request(5, submitted, leave.StatusPending)}, reqs)
}

func TestFakeRepo_FailWith(t *testing.T) {
	repo := leavecacherepofake.NewFakeLeaveCacheRepo()
	boom := errors.New("disk full")
	repo.FailWith(boom)

	_, err := repo.ReadAll(context.Background(), "1")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, repo.ReplaceAll(context.Background(), "1", []leave.Request{{ID: 1}}), boom)
}
