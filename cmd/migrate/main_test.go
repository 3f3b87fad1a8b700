package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mysql"), 0o755))
	for _, name := range []string{"001_a.up.sql", "002_b.up.sql", "001_a.down.sql", "002_b.down.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mysql", name), []byte("SELECT 1;"), 0o644))
	}

	up, err := migrationFiles(dir, "mysql", "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.up.sql", "002_b.up.sql"}, bases(up))

	down, err := migrationFiles(dir, "mysql", "down")
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b.down.sql", "001_a.down.sql"}, bases(down))

	_, err = migrationFiles(dir, "postgres", "up")
	assert.Error(t, err)
}

func TestShippedMigrations(t *testing.T) {
	want := map[string]int{"postgres": 4, "mysql": 2}
	for driver, n := range want {
		files, err := migrationFiles(filepath.Join("..", "..", "migrations"), driver, "up")
		require.NoError(t, err, driver)

		content, err := os.ReadFile(files[0])
		require.NoError(t, err)
		assert.Len(t, statements(string(content)), n, driver)
	}
}

func bases(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
