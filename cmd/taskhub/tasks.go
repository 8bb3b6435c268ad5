package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	taskhubsdk "taskhub/sdk/go"
)

type taskFields struct {
	title, description string
	start, due         string
	status, priority   string
	category           string
	tags               []string
	assignees          []int64
}

func (f *taskFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "task title")
	cmd.Flags().StringVar(&f.description, "description", "", "task description")
	cmd.Flags().StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.status, "status", "", "pending, in_progress, completed or on_hold")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium, high or urgent")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().Int64SliceVar(&f.assignees, "assignee", nil, "assignee user id (repeatable)")
}

func taskCreateCmd() *cobra.Command {
	var f taskFields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				t, err := c.CreateTask(cmd.Context(), taskhubsdk.TaskInput{
					Title:       f.title,
					Description: f.description,
					StartDate:   f.start,
					DueDate:     f.due,
					Status:      f.status,
					Priority:    f.priority,
					Category:    f.category,
					Tags:        f.tags,
					AssigneeIDs: f.assignees,
				})
				if err != nil {
					return err
				}
				return printTask(cmd, t, t.Description, t.Category)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var f taskFields
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a task",
		Long:  "Only flags given on the command line are sent. --tag and --assignee replace the whole set; pass --tag= to clear tags.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			patch := taskhubsdk.TaskPatch{
				Title:       changedString(cmd, "title", f.title),
				Description: changedString(cmd, "description", f.description),
				StartDate:   changedString(cmd, "start", f.start),
				DueDate:     changedString(cmd, "due", f.due),
				Status:      changedString(cmd, "status", f.status),
				Priority:    changedString(cmd, "priority", f.priority),
				Category:    changedString(cmd, "category", f.category),
			}
			if cmd.Flags().Changed("tag") {
				tags := append([]string{}, f.tags...)
				patch.Tags = &tags
			}
			if cmd.Flags().Changed("assignee") {
				ids := append([]int64{}, f.assignees...)
				patch.AssigneeIDs = &ids
			}
			return withClient(func(c *taskhubsdk.Client) error {
				t, err := c.UpdateTask(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return printTask(cmd, t, t.Description, t.Category)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Move a task to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				ok := confirm(cmd, fmt.Sprintf("Move task %d to the trash?", id), yes)
				deleted, err := c.TrashTask(cmd.Context(), id, ok)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, map[string]bool{"deleted": deleted})
				}
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d moved to trash\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d kept\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <bucket>",
		Short: "Drop a task into a board column (To Do, In Progress or Done)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				t, err := c.MoveTask(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				return printTask(cmd, t, t.Description, t.Category)
			})
		},
	}
}

func taskTagCmd() *cobra.Command {
	tag := &cobra.Command{Use: "tag", Short: "Add or remove a task tag"}
	tag.AddCommand(&cobra.Command{
		Use:   "add <id> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tagChange(cmd, args, (*taskhubsdk.Client).AddTag)
		},
	})
	tag.AddCommand(&cobra.Command{
		Use:   "remove <id> <tag>",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tagChange(cmd, args, (*taskhubsdk.Client).RemoveTag)
		},
	})
	return tag
}

func tagChange(cmd *cobra.Command, args []string, op func(*taskhubsdk.Client, context.Context, int64, string) (taskhubsdk.Task, error)) error {
	id, err := parseID(args[0], "task")
	if err != nil {
		return err
	}
	return withClient(func(c *taskhubsdk.Client) error {
		t, err := op(c, cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		return printTask(cmd, t, t.Description, t.Category)
	})
}

func trashCmd() *cobra.Command {
	trash := &cobra.Command{Use: "trash", Short: "Inspect, restore and purge trashed tasks"}
	trash.AddCommand(trashListCmd())
	trash.AddCommand(trashRestoreCmd())
	trash.AddCommand(trashPurgeCmd())
	trash.AddCommand(trashEmptyCmd())
	return trash
}

func trashRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a trashed task with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				t, err := c.Restore(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printTask(cmd, t, t.Description, t.Category)
			})
		},
	}
}

func trashPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "Delete a trashed task permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				ok := confirm(cmd, fmt.Sprintf("Permanently delete task %d?", id), yes)
				purged, err := c.Purge(cmd.Context(), id, ok)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, map[string]bool{"deleted": purged})
				}
				if purged {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d purged\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d kept\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func trashEmptyCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Purge every trashed task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				ok := confirm(cmd, "Permanently delete every trashed task?", yes)
				n, err := c.EmptyTrash(cmd.Context(), ok)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, map[string]int{"purged": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d task(s) purged\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func commentCmd() *cobra.Command {
	comment := &cobra.Command{Use: "comment", Short: "Read and write task comments"}
	var replyTo int64
	add := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var parent *int64
			if cmd.Flags().Changed("reply-to") {
				parent = &replyTo
			}
			return withClient(func(c *taskhubsdk.Client) error {
				cm, err := c.AddComment(cmd.Context(), id, args[1], parent)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd, cm)
			})
		},
	}
	add.Flags().Int64Var(&replyTo, "reply-to", 0, "parent comment id")
	comment.AddCommand(add)
	comment.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List comments on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				comments, err := c.Comments(cmd.Context(), id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, comments)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "User", "Reply to", "Text", "Created"})
				for _, cm := range comments {
					parent := ""
					if cm.ParentCommentID != nil {
						parent = fmt.Sprint(*cm.ParentCommentID)
					}
					tw.AppendRow(table.Row{cm.ID, cm.UserID, parent, cm.Text, cm.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	return comment
}

func notifyCmd() *cobra.Command {
	notify := &cobra.Command{Use: "notify", Short: "Read your notifications"}
	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List your notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				notes, err := c.Notifications(cmd.Context(), unread)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, notes)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Type", "Task", "Message", "Read", "Created"})
				for _, n := range notes {
					task := ""
					if n.TaskID != nil {
						task = fmt.Sprint(*n.TaskID)
					}
					tw.AppendRow(table.Row{n.ID, n.Type, task, n.Message, n.IsRead, n.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	notify.AddCommand(list)
	notify.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "notification")
			if err != nil {
				return err
			}
			return withClient(func(c *taskhubsdk.Client) error {
				n, err := c.MarkRead(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd, n)
			})
		},
	})
	return notify
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Queue due-today reminders for assignees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				n, err := c.QueueReminders(cmd.Context(), viper.GetString("today"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, map[string]int{"queued": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d reminder(s) queued\n", n)
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	var limit int
	var cursor string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				page, err := c.EventsPage(cmd.Context(), limit, cursor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
				for _, e := range page.Items {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + "/" + e.EntityID, e.ActorID})
				}
				tw.Render()
				if page.NextCursor != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "next: --cursor %s\n", page.NextCursor)
				}
				return nil
			})
		},
	}
	tail.Flags().IntVar(&limit, "n", 20, "number of events")
	tail.Flags().StringVar(&cursor, "cursor", "", "continue from a previous page")
	log.AddCommand(tail)
	return log
}
