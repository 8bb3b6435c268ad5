package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/app"
	"taskhub/internal/logging"
	"taskhub/internal/server"
	taskhubsdk "taskhub/sdk/go"
)

func TestMain(m *testing.M) {
	initConfig()
	os.Exit(m.Run())
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func startServer(t *testing.T, workspace string) string {
	t.Helper()
	a, err := app.Bootstrap(app.Options{Workspace: workspace, JWTSecret: "cli-secret", Logger: logging.Discard()})
	require.NoError(t, err)
	handler, err := server.New(server.Config{Engine: a.Engine, Views: a.Views, Sessions: a.Sessions, Log: a.Log})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestSetEnvValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("A=1\nTASKHUB_SESSION=old\nB=2"), 0o600))

	require.NoError(t, setEnvValue(path, "TASKHUB_SESSION", "new"))
	require.NoError(t, setEnvValue(path, "C", "3"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A=1\nTASKHUB_SESSION=new\nB=2\nC=3\n", string(data))
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		yes   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", false, false},
		{"", false, false},
		{"", true, true},
	}
	for _, tc := range cases {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(tc.input))
		assert.Equal(t, tc.want, confirm(cmd, "Sure?", tc.yes), "input %q", tc.input)
		if !tc.yes {
			assert.Contains(t, out.String(), "Sure? [y/N]")
		}
	}
}

func TestLocalReads(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "-w", dir, "dashboard", "--json", "--today", "2024-01-12")
	require.NoError(t, err)
	var dash struct {
		Today   string `json:"today"`
		Summary struct {
			DueToday int `json:"due_today_count"`
		} `json:"summary"`
		Upcoming []struct {
			ID int64 `json:"id"`
		} `json:"upcoming"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &dash))
	assert.Equal(t, "2024-01-12", dash.Today)
	assert.Equal(t, 1, dash.Summary.DueToday)
	assert.Len(t, dash.Upcoming, 5)

	out, err = run(t, "", "-w", dir, "task", "list", "--json", "--assignee", "2", "--sort", "due_date", "--dir", "desc")
	require.NoError(t, err)
	var tasks []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	var ids []int64
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{4, 5, 1}, ids)

	out, err = run(t, "", "-w", dir, "tags")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "auth")

	out, err = run(t, "", "-w", dir, "board")
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "IN PROGRESS (1)")

	_, err = run(t, "", "-w", dir, "task", "list", "--sort", "size")
	require.Error(t, err)

	_, err = run(t, "", "-w", dir, "dashboard", "--today", "12/01/2024")
	require.ErrorContains(t, err, "want YYYY-MM-DD")
}

func TestMutationsNeedServer(t *testing.T) {
	_, err := run(t, "", "-w", t.TempDir(), "task", "create", "--title", "x", "--due", "2024-02-01")
	require.ErrorIs(t, err, errNoServer)
}

func TestRemoteSessionAndMutations(t *testing.T) {
	t.Setenv(sessionEnvKey, "")
	dir := t.TempDir()
	url := startServer(t, dir)

	out, err := run(t, "", "-w", dir, "--server", url, "login", "sarah.chen")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as sarah.chen")
	env, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(env), sessionEnvKey+"=ey")

	out, err = run(t, "", "-w", dir, "--server", url, "task", "create", "--json",
		"--title", "From CLI", "--due", "2024-02-01", "--tag", "cli", "--assignee", "2")
	require.NoError(t, err)
	var created taskhubsdk.Task
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, []string{"cli"}, created.Tags)

	out, err = run(t, "", "-w", dir, "--server", url, "task", "update", "7", "--json", "--priority", "urgent")
	require.NoError(t, err)
	var updated taskhubsdk.Task
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "urgent", updated.Priority)
	assert.Equal(t, "From CLI", updated.Title)
	assert.Equal(t, []string{"cli"}, updated.Tags)

	out, err = run(t, "", "-w", dir, "--server", url, "task", "move", "7", "Done")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = run(t, "n\n", "-w", dir, "--server", url, "task", "delete", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 7 kept")

	out, err = run(t, "", "-w", dir, "--server", url, "task", "delete", "7", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 7 moved to trash")

	out, err = run(t, "", "-w", dir, "--server", url, "trash", "list", "--json")
	require.NoError(t, err)
	var trashed []taskhubsdk.Task
	require.NoError(t, json.Unmarshal([]byte(out), &trashed))
	require.NotEmpty(t, trashed)
	assert.Equal(t, int64(7), trashed[0].ID)

	out, err = run(t, "", "-w", dir, "--server", url, "trash", "restore", "7", "--json")
	require.NoError(t, err)
	var restored taskhubsdk.Task
	require.NoError(t, json.Unmarshal([]byte(out), &restored))
	assert.Equal(t, []string{"cli"}, restored.Tags)

	out, err = run(t, "", "-w", dir, "--server", url, "comment", "add", "7", "looks good")
	require.NoError(t, err)
	assert.Contains(t, out, "looks good")

	out, err = run(t, "", "-w", dir, "--server", url, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "sarah.chen")

	_, err = run(t, "", "-w", dir, "--server", url, "logout")
	require.NoError(t, err)
	_, err = run(t, "", "-w", dir, "--server", url, "whoami")
	var apiErr *taskhubsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unauthenticated", apiErr.Code)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "", "-w", dir, "config", "validate")
	require.ErrorContains(t, err, "not found")

	out, err := run(t, "", "-w", dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "taskhub.yml")
	_, err = run(t, "", "-w", dir, "config", "init")
	require.ErrorContains(t, err, "already exists")

	out, err = run(t, "", "-w", dir, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "config OK")

	out, err = run(t, "", "-w", dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "shortlist_size: 5")
}
