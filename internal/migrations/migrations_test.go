package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(Migrations, "00001_init.sql")
	require.NoError(t, err)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS posts",
		"CREATE TABLE IF NOT EXISTS platform_connections",
		"UNIQUE (user_id, platform, account_name)",
		"idx_posts_scheduled_datetime",
		"-- +goose Down",
	} {
		require.True(t, strings.Contains(string(body), want), "missing %q", want)
	}
}

func TestRun_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Run(context.Background(), nil))
	require.Equal(t, ".", gotDir)
}

func TestRun_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	require.EqualError(t, Run(context.Background(), nil), "boom")
}
