package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
)

// SQLiteRepo persists credentials in the credentials table of the device database.
type SQLiteRepo struct {
	db      *sql.DB
	nowTime func() time.Time
}

var _ Repo = (*SQLiteRepo)(nil)

// NewSQLiteRepo creates a repo on a database migrated by internal/database.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, nowTime: time.Now}
}

func (r *SQLiteRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credentials get %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepo) Set(ctx context.Context, key, value string) error {
	now := r.nowTime()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	if err != nil {
		return fmt.Errorf("credentials set %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("credentials delete: %w", err)
	}
	return nil
}
