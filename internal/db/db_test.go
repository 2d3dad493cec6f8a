package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robinstudios/dot/internal/common/config"
)

func TestOpenMemoryYieldsNilPool(t *testing.T) {
	pool, err := Open(config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.db")
	pool, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer func() { _ = pool.Close() }()

	assert.Equal(t, DriverSQLite, pool.DriverName())
	_, err = pool.Writer().Exec(`CREATE TABLE t (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = pool.Writer().Exec(pool.Writer().Rebind(`INSERT INTO t (id) VALUES (?)`), "a")
	require.NoError(t, err)

	var n int
	require.NoError(t, pool.Reader().Get(&n, `SELECT COUNT(*) FROM t`))
	assert.Equal(t, 1, n)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}
