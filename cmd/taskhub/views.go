package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskhub/internal/app"
	"taskhub/internal/domain"
	"taskhub/internal/view"
	taskhubsdk "taskhub/sdk/go"
)

// taskRow is one rendered line of a task table, built from either a local
// card or an API task.
type taskRow struct {
	ID        int64
	Title     string
	Status    string
	Priority  string
	Due       string
	Assignees string
	Tags      string
}

func cardRow(c view.Card) taskRow {
	names := make([]string, 0, len(c.Assignees))
	for _, u := range c.Assignees {
		names = append(names, u.Username)
	}
	return taskRow{
		ID:        c.ID,
		Title:     c.Title,
		Status:    string(c.Status),
		Priority:  string(c.Priority),
		Due:       c.DueDate,
		Assignees: strings.Join(names, ", "),
		Tags:      strings.Join(c.Tags, ", "),
	}
}

func apiRow(t taskhubsdk.Task) taskRow {
	names := make([]string, 0, len(t.Assignees))
	for _, u := range t.Assignees {
		names = append(names, u.Username)
	}
	return taskRow{
		ID:        t.ID,
		Title:     t.Title,
		Status:    t.Status,
		Priority:  t.Priority,
		Due:       t.DueDate,
		Assignees: strings.Join(names, ", "),
		Tags:      strings.Join(t.Tags, ", "),
	}
}

func cardRows(cards []view.Card) []taskRow {
	rows := make([]taskRow, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, cardRow(c))
	}
	return rows
}

func apiRows(tasks []taskhubsdk.Task) []taskRow {
	rows := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, apiRow(t))
	}
	return rows
}

func renderTasks(cmd *cobra.Command, title string, rows []taskRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	if title != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due", "Assignees", "Tags"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ID, r.Title, r.Status, r.Priority, r.Due, r.Assignees, r.Tags})
	}
	tw.Render()
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show overdue, due-today and completed counts with the upcoming shortlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote() {
				return withClient(func(c *taskhubsdk.Client) error {
					d, err := c.Dashboard(cmd.Context(), viper.GetString("today"))
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(cmd, d)
					}
					renderDashboard(cmd, d.Today,
						[3]int{d.Summary.Overdue, d.Summary.DueToday, d.Summary.Completed},
						[3]int{d.Breakdown.High, d.Breakdown.Medium, d.Breakdown.Low},
						apiRows(d.Upcoming))
					return nil
				})
			}
			return withApp(func(a *app.App) error {
				today, err := a.Today(viper.GetString("today"))
				if err != nil {
					return err
				}
				d := a.Dashboard(today)
				if viper.GetBool("json") {
					return printJSON(cmd, d)
				}
				renderDashboard(cmd, d.Today,
					[3]int{d.Summary.Overdue, d.Summary.DueToday, d.Summary.Completed},
					[3]int{d.Breakdown.High, d.Breakdown.Medium, d.Breakdown.Low},
					cardRows(view.Cards(d.Upcoming, a.Store.Snapshot())))
				return nil
			})
		},
	}
}

func renderDashboard(cmd *cobra.Command, today string, summary, breakdown [3]int, upcoming []taskRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetTitle("Dashboard for " + today)
	tw.AppendHeader(table.Row{"Overdue", "Due today", "Completed", "High", "Medium", "Low"})
	tw.AppendRow(table.Row{summary[0], summary[1], summary[2], breakdown[0], breakdown[1], breakdown[2]})
	tw.Render()
	renderTasks(cmd, "Upcoming", upcoming)
}

type listFlags struct {
	assignee, category, tag string
	sort, dir               string
}

func (f *listFlags) bind(cmd *cobra.Command, withSort bool) {
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "assignee id, or 'all'")
	cmd.Flags().StringVar(&f.category, "category", "", "category, or 'all'")
	cmd.Flags().StringVar(&f.tag, "tag", "", "tag, or 'all'")
	if withSort {
		cmd.Flags().StringVar(&f.sort, "sort", "", "due_date, priority, title, status or assignee")
		cmd.Flags().StringVar(&f.dir, "dir", "", "asc or desc")
	}
}

func (f listFlags) query() taskhubsdk.ListQuery {
	return taskhubsdk.ListQuery{Assignee: f.assignee, Category: f.category, Tag: f.tag, Sort: f.sort, Dir: f.dir}
}

func (f listFlags) params(mode view.Mode) (view.Params, error) {
	filter, err := view.ParseFilter(f.assignee, f.category, f.tag)
	if err != nil {
		return view.Params{}, err
	}
	field, dir, err := view.ParseSort(f.sort, f.dir)
	if err != nil {
		return view.Params{}, err
	}
	return view.Params{Mode: mode, Filter: filter, Sort: field, Dir: dir}, nil
}

func boardCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the Kanban board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote() {
				return withClient(func(c *taskhubsdk.Client) error {
					b, err := c.Board(cmd.Context(), f.query())
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(cmd, b)
					}
					for _, col := range b.Columns {
						renderTasks(cmd, fmt.Sprintf("%s (%d)", col.Bucket, len(col.Tasks)), apiRows(col.Tasks))
					}
					return nil
				})
			}
			return withApp(func(a *app.App) error {
				p, err := f.params(view.ModeKanban)
				if err != nil {
					return err
				}
				snap := a.Store.Snapshot()
				board := a.Views.Derive(snap, p).Board
				if viper.GetBool("json") {
					out := map[string][]view.Card{}
					for _, col := range board.Columns {
						out[string(col.Bucket)] = view.Cards(col.Tasks, snap)
					}
					return printJSON(cmd, out)
				}
				for _, col := range board.Columns {
					renderTasks(cmd, fmt.Sprintf("%s (%d)", col.Bucket, len(col.Tasks)), cardRows(view.Cards(col.Tasks, snap)))
				}
				return nil
			})
		},
	}
	f.bind(cmd, false)
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "List and change tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskTagCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote() {
				return withClient(func(c *taskhubsdk.Client) error {
					tasks, err := c.ListTasks(cmd.Context(), f.query())
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(cmd, tasks)
					}
					renderTasks(cmd, "", apiRows(tasks))
					return nil
				})
			}
			return withApp(func(a *app.App) error {
				p, err := f.params(view.ModeList)
				if err != nil {
					return err
				}
				snap := a.Store.Snapshot()
				cards := view.Cards(a.Views.Derive(snap, p).Tasks, snap)
				if viper.GetBool("json") {
					return printJSON(cmd, cards)
				}
				renderTasks(cmd, "", cardRows(cards))
				return nil
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			if remote() {
				return withClient(func(c *taskhubsdk.Client) error {
					t, err := c.GetTask(cmd.Context(), id)
					if err != nil {
						return err
					}
					return printTask(cmd, t, t.Description, t.Category)
				})
			}
			return withApp(func(a *app.App) error {
				snap := a.Store.Snapshot()
				t, err := snap.ActiveTask(id)
				if err != nil {
					return err
				}
				card := view.CardOf(t, snap)
				return printTask(cmd, card, card.Description, card.Category)
			})
		},
	}
}

func printTask(cmd *cobra.Command, v any, description, category string) error {
	if viper.GetBool("json") {
		return printJSON(cmd, v)
	}
	var r taskRow
	switch t := v.(type) {
	case taskhubsdk.Task:
		r = apiRow(t)
	case view.Card:
		r = cardRow(t)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendRows([]table.Row{
		{"ID", r.ID},
		{"Title", r.Title},
		{"Description", description},
		{"Status", r.Status},
		{"Bucket", domain.BucketFor(domain.Status(r.Status))},
		{"Priority", r.Priority},
		{"Category", category},
		{"Due", r.Due},
		{"Assignees", r.Assignees},
		{"Tags", r.Tags},
	})
	tw.Render()
	return nil
}

func teamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "List team members with their open task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []table.Row
			var raw any
			if remote() {
				err := withClient(func(c *taskhubsdk.Client) error {
					team, err := c.Team(cmd.Context())
					for _, m := range team {
						rows = append(rows, table.Row{m.ID, m.Username, m.FullName, m.Role, m.IsActive, m.OpenTasks})
					}
					raw = team
					return err
				})
				if err != nil {
					return err
				}
			} else {
				err := withApp(func(a *app.App) error {
					team := view.Team(a.Store.Snapshot())
					for _, m := range team {
						rows = append(rows, table.Row{m.ID, m.Username, m.FullName, m.Role, m.IsActive, m.OpenTasks})
					}
					raw = team
					return nil
				})
				if err != nil {
					return err
				}
			}
			if viper.GetBool("json") {
				return printJSON(cmd, raw)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "Username", "Name", "Role", "Active", "Open tasks"})
			tw.AppendRows(rows)
			tw.Render()
			return nil
		},
	}
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags in use on active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tags []string
			if remote() {
				err := withClient(func(c *taskhubsdk.Client) error {
					var err error
					tags, err = c.Tags(cmd.Context())
					return err
				})
				if err != nil {
					return err
				}
			} else {
				err := withApp(func(a *app.App) error {
					tags = a.Store.Snapshot().AllTags()
					return nil
				})
				if err != nil {
					return err
				}
			}
			if viper.GetBool("json") {
				return printJSON(cmd, tags)
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

func trashListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trashed tasks, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote() {
				return withClient(func(c *taskhubsdk.Client) error {
					tasks, err := c.Trash(cmd.Context())
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(cmd, tasks)
					}
					renderTasks(cmd, "Trash", apiRows(tasks))
					return nil
				})
			}
			return withApp(func(a *app.App) error {
				snap := a.Store.Snapshot()
				cards := view.Cards(view.Trash(snap), snap)
				if viper.GetBool("json") {
					return printJSON(cmd, cards)
				}
				renderTasks(cmd, "Trash", cardRows(cards))
				return nil
			})
		},
	}
}
