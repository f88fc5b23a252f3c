package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

func newTestMigrator(t *testing.T) (*Migrator, *test.Hook) {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return New(db, sqlstore.DriverSQLite, logger.FromLogrus(base, "test")), hook
}

func TestMigrator_UpDown(t *testing.T) {
	ctx := context.Background()
	m, hook := newTestMigrator(t)

	require.NoError(t, m.Run(ctx, "UP"))
	versions, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)
	assert.Len(t, hook.AllEntries(), 3)

	// re-running is a no-op
	require.NoError(t, m.Up(ctx))
	assert.Len(t, hook.AllEntries(), 3)

	var count int
	require.NoError(t, m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interventions").Scan(&count))
	assert.Zero(t, count)

	require.NoError(t, m.Run(ctx, Down))
	versions, err = m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = m.db.ExecContext(ctx, "SELECT COUNT(*) FROM tasks")
	assert.Error(t, err)
}

func TestMigrator_UnknownMode(t *testing.T) {
	m, _ := newTestMigrator(t)
	assert.EqualError(t, m.Run(context.Background(), "sideways"), "unknown mode: sideways")
}

func TestLoadMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.up.sql":   {Data: []byte("SELECT 1")},
		"001_first.up.sql":    {Data: []byte("SELECT 1")},
		"001_first.down.sql":  {Data: []byte("SELECT 1")},
		"README.md":           {Data: []byte("notes")},
		"latest_broken.sql":   {Data: []byte("SELECT 1")},
		"003_plain_named.sql": {Data: []byte("SELECT 1")},
	}

	files, err := loadMigrationFiles(fsys)
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, 1, files[0].version)
	assert.Equal(t, "first", files[0].name)
	assert.Equal(t, 2, files[2].version)
	assert.Equal(t, Up, files[2].kind)
	assert.Equal(t, "plain_named", files[3].name)
	assert.Equal(t, Up, files[3].kind)
}

func TestParseVersionAndName(t *testing.T) {
	ver, name, err := parseVersionAndName("010_create_tasks_tables.down.sql")
	require.NoError(t, err)
	assert.Equal(t, 10, ver)
	assert.Equal(t, "create_tasks_tables", name)

	_, _, err = parseVersionAndName("nounderscore.sql")
	assert.Error(t, err)
	_, _, err = parseVersionAndName("abc_name.sql")
	assert.Error(t, err)
}
