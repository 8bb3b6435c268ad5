package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/store"
)

var errNothingQueued = errors.New("no reminders due")

type CommentOptions struct {
	TaskID   int64
	UserID   int64
	ParentID *int64
	Text     string
}

// AddComment posts a comment on an active task. A reply's parent must belong to
// the same task. Assignees other than the author are notified.
func (e Engine) AddComment(ctx context.Context, opts CommentOptions) (domain.Comment, error) {
	text := strings.TrimSpace(opts.Text)
	if text == "" {
		return domain.Comment{}, invalid("text", "is required")
	}
	var out domain.Comment
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		t, err := tx.ActiveTask(opts.TaskID)
		if err != nil {
			return err
		}
		author, err := tx.User(opts.UserID)
		if err != nil {
			return fmt.Errorf("user %d: %w", opts.UserID, err)
		}
		if opts.ParentID != nil {
			parent, err := tx.Comment(*opts.ParentID)
			if err != nil {
				return &ValidationError{Field: "parent_comment_id", Reason: "unknown comment", Err: err}
			}
			if parent.TaskID != t.ID {
				return invalid("parent_comment_id", "belongs to another task")
			}
		}
		ts := domain.Timestamp(e.now())
		out = tx.InsertComment(domain.Comment{
			UserID:          author.ID,
			TaskID:          t.ID,
			ParentCommentID: opts.ParentID,
			Text:            text,
			CreatedAt:       ts,
		})
		notify(tx, tx.AssigneesOf(t.ID), author.ID, t.ID, domain.NotificationComment,
			fmt.Sprintf("%s commented on %q", author.FullName, t.Title), ts)
		_, err = e.writer().Append(tx, "comment.added", "task", entityID(t.ID), actor(author.ID), events.EventPayload{"comment_id": out.ID})
		return err
	})
	return out, err
}

// Comments lists an active task's comments in posting order.
func (e Engine) Comments(taskID int64) ([]domain.Comment, error) {
	st := e.Store.Snapshot()
	if _, err := st.ActiveTask(taskID); err != nil {
		return nil, err
	}
	return st.CommentsFor(taskID), nil
}

// notify queues one notification per recipient, skipping the actor.
func notify(tx *store.Tx, recipients []int64, actorID, taskID int64, typ domain.NotificationType, msg, ts string) {
	for _, uid := range recipients {
		if uid == actorID {
			continue
		}
		id := taskID
		tx.InsertNotification(domain.Notification{
			UserID:    uid,
			TaskID:    &id,
			Message:   msg,
			Type:      typ,
			CreatedAt: ts,
		})
	}
}

// Notifications lists a user's notifications, newest first.
func (e Engine) Notifications(userID int64, unreadOnly bool) []domain.Notification {
	all := e.Store.Snapshot().NotificationsFor(userID)
	if !unreadOnly {
		return all
	}
	var out []domain.Notification
	for _, n := range all {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

// MarkNotificationRead flags one of userID's notifications as read. Other
// users' notifications are reported as not found.
func (e Engine) MarkNotificationRead(ctx context.Context, id, userID int64) (domain.Notification, error) {
	var out domain.Notification
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		n, err := tx.Notification(id)
		if err != nil {
			return err
		}
		if n.UserID != userID {
			return store.ErrNotFound
		}
		n.IsRead = true
		out = n
		return tx.PutNotification(n)
	})
	return out, err
}

// MarkNotificationSent stamps sent_at after an outbound delivery.
func (e Engine) MarkNotificationSent(ctx context.Context, id int64) (domain.Notification, error) {
	var out domain.Notification
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		n, err := tx.Notification(id)
		if err != nil {
			return err
		}
		if n.SentAt == nil {
			ts := domain.Timestamp(e.now())
			n.SentAt = &ts
		}
		out = n
		return tx.PutNotification(n)
	})
	return out, err
}

// QueueReminders notifies assignees of open tasks due on or before the day
// after today. A task gets at most one reminder per assignee per UTC day.
func (e Engine) QueueReminders(ctx context.Context, today time.Time) (int, error) {
	day, _ := domain.ParseDate(domain.DateOf(today))
	horizon := day.AddDate(0, 0, 1)
	stamp := e.now().UTC().Format(time.DateOnly)
	var n int
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		n = 0
		sent := map[[2]int64]bool{}
		for _, existing := range tx.Notifications {
			if existing.Type == domain.NotificationReminder && existing.TaskID != nil && strings.HasPrefix(existing.CreatedAt, stamp) {
				sent[[2]int64{existing.UserID, *existing.TaskID}] = true
			}
		}
		ts := domain.Timestamp(e.now())
		for _, t := range tx.Active() {
			if t.Status == domain.StatusCompleted {
				continue
			}
			due, ok := domain.ParseDate(t.DueDate)
			if !ok || due.After(horizon) {
				continue
			}
			msg := fmt.Sprintf("%q is due %s", t.Title, t.DueDate)
			if due.Before(day) {
				msg = fmt.Sprintf("%q is overdue since %s", t.Title, t.DueDate)
			}
			for _, uid := range tx.AssigneesOf(t.ID) {
				key := [2]int64{uid, t.ID}
				if sent[key] {
					continue
				}
				sent[key] = true
				notify(tx, []int64{uid}, 0, t.ID, domain.NotificationReminder, msg, ts)
				n++
			}
		}
		if n == 0 {
			return errNothingQueued
		}
		_, err := e.writer().Append(tx, "reminders.queued", "notification", "", actor(0), events.EventPayload{"count": n})
		return err
	})
	if errors.Is(err, errNothingQueued) {
		return 0, nil
	}
	return n, err
}
