package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskhub/internal/app"
	"taskhub/internal/config"
	taskhubsdk "taskhub/sdk/go"
)

const sessionEnvKey = "TASKHUB_SESSION"

var errNoServer = errors.New("this command talks to a running server: pass --server or set TASKHUB_SERVER")

func main() {
	cobra.OnInitialize(initConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskhub",
		Short: "TaskHub task board",
		Long: `TaskHub keeps a small team's task board: tasks with priorities, tags and
assignees, a dashboard of what is overdue or due today, and a Kanban board of
To Do, In Progress and Done.

Read commands (dashboard, board, task list, team, tags, trash list) run against
the workspace's seed data, or against a server when --server is given.
Mutations always go through a running server ('taskhub serve') and need a
session from 'taskhub login'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(viper.GetString("workspace"))
		},
	}
	addPersistentFlags(root)
	registerCommands(root)
	return root
}

func initConfig() {
	viper.SetEnvPrefix("TASKHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("server", "", "server URL, e.g. http://127.0.0.1:8080")
	root.PersistentFlags().String("today", "", "reference date (YYYY-MM-DD) for dashboards and reminders")
	_ = viper.BindPFlag("workspace", root.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("today", root.PersistentFlags().Lookup("today"))
}

func registerCommands(root *cobra.Command) {
	root.AddCommand(dashboardCmd())
	root.AddCommand(boardCmd())
	root.AddCommand(taskCmd())
	root.AddCommand(teamCmd())
	root.AddCommand(tagsCmd())
	root.AddCommand(trashCmd())
	root.AddCommand(commentCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(remindCmd())
	root.AddCommand(logCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(logoutCmd())
	root.AddCommand(whoamiCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
}

// --- helpers ---

func loadDotEnv(workspace string) error {
	err := godotenv.Load(envPath(workspace))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".env")
}

func withApp(fn func(*app.App) error) error {
	a, err := app.Bootstrap(app.Options{
		Workspace: viper.GetString("workspace"),
		JWTSecret: viper.GetString("jwt-secret"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func remote() bool {
	return strings.TrimSpace(viper.GetString("server")) != ""
}

// newClient returns an SDK client for --server carrying the stored session.
func newClient() (*taskhubsdk.Client, error) {
	if !remote() {
		return nil, errNoServer
	}
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	c := taskhubsdk.New(strings.TrimSpace(viper.GetString("server")))
	c.BasePath = cfg.Server.BasePath
	c.BearerToken = viper.GetString("session")
	return c, nil
}

func withClient(fn func(*taskhubsdk.Client) error) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	return fn(c)
}

func printJSONOrTable(cmd *cobra.Command, v any) error {
	if viper.GetBool("json") {
		return printJSON(cmd, v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

// confirm asks question on the command's input unless yes is set. Anything
// other than y or yes declines.
func confirm(cmd *cobra.Command, question string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// changedString returns &v when the flag was given on the command line.
func changedString(cmd *cobra.Command, name, v string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}
