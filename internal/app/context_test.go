package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/config"
	"taskhub/internal/logging"
)

func TestBootstrapDefaults(t *testing.T) {
	a, err := Bootstrap(Options{Workspace: t.TempDir(), Logger: logging.Discard()})
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Store.Snapshot().Active(), 5)
	assert.NotEmpty(t, a.Sessions.Secret)
	assert.Equal(t, 5, a.Config.Board.ShortlistSize)

	today, err := a.Today("2024-01-12")
	require.NoError(t, err)
	d := a.Dashboard(today)
	assert.Equal(t, 1, d.Summary.DueToday)
	assert.Len(t, d.Upcoming, 5)

	_, err = a.Today("12/01/2024")
	assert.Error(t, err)
}

func TestBootstrapUsesSeedFileAndLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("seed:\n  file: seed.yml\nlog:\n  file: logs/app.log\n  level: debug\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.yml"), []byte(`
users:
  - {id: 1, username: solo, full_name: Solo, role: member, is_active: true}
tasks:
  - {id: 1, title: Only, due_date: "2024-01-01", status: pending, priority: low}
`), 0o644))

	a, err := Bootstrap(Options{Workspace: dir, JWTSecret: "s3cret"})
	require.NoError(t, err)
	assert.Len(t, a.Store.Snapshot().Tasks, 1)
	assert.Equal(t, []byte("s3cret"), a.Sessions.Secret)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "store seeded")
}

func TestBootstrapRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("seed:\n  file: missing.yml\n"), 0o644))
	_, err := Bootstrap(Options{Workspace: dir, Logger: logging.Discard()})
	assert.ErrorContains(t, err, "load entity source")
}
