package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/store"
)

type Engine struct {
	Store  *store.Store
	Events events.Writer
	Log    logrus.FieldLogger
	Now    func() time.Time
}

func New(st *store.Store, log logrus.FieldLogger) Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return Engine{
		Store:  st,
		Events: events.Writer{Now: time.Now},
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

func actor(id int64) string {
	if id == 0 {
		return "system"
	}
	return strconv.FormatInt(id, 10)
}

func entityID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title       string
	Description string
	StartDate   string
	DueDate     string
	Status      string
	Priority    string
	Category    string
	Tags        []string
	AssigneeIDs []int64
	ActorID     int64
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, invalid("title", "is required")
	}
	due, err := requireDate("due_date", opts.DueDate)
	if err != nil {
		return domain.Task{}, err
	}
	start, err := optionalDate("start_date", opts.StartDate)
	if err != nil {
		return domain.Task{}, err
	}
	status := domain.StatusPending
	if opts.Status != "" {
		if status, err = domain.ParseStatus(opts.Status); err != nil {
			return domain.Task{}, &ValidationError{Field: "status", Reason: err.Error(), Err: err}
		}
	}
	priority := domain.PriorityMedium
	if opts.Priority != "" {
		if priority, err = domain.ParsePriority(opts.Priority); err != nil {
			return domain.Task{}, &ValidationError{Field: "priority", Reason: err.Error(), Err: err}
		}
	}
	tags, err := domain.NewTagSet(opts.Tags)
	if err != nil {
		return domain.Task{}, &ValidationError{Field: "tags", Reason: err.Error(), Err: err}
	}
	now := e.now()
	ts := domain.Timestamp(now)
	t := domain.Task{
		Title:       title,
		Description: opts.Description,
		StartDate:   start,
		DueDate:     due,
		Status:      status,
		Priority:    priority,
		Category:    strings.TrimSpace(opts.Category),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if status == domain.StatusCompleted {
		d := domain.DateOf(now)
		t.CompletedDate = &d
	}

	tx, err := e.Store.Begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t.ID = tx.NextTaskID()
	if err := tx.InsertTask(t); err != nil {
		return domain.Task{}, err
	}
	if err := tx.SetTags(t.ID, tags); err != nil {
		return domain.Task{}, err
	}
	added, err := tx.SetAssignees(t.ID, dedupe(opts.AssigneeIDs), ts)
	if err != nil {
		return domain.Task{}, &ValidationError{Field: "assignee_ids", Reason: err.Error(), Err: err}
	}
	notify(tx, added, opts.ActorID, t.ID, domain.NotificationAssignment,
		fmt.Sprintf("You were assigned to %q", t.Title), ts)
	if _, err := e.writer().Append(tx, "task.created", "task", entityID(t.ID), actor(opts.ActorID), events.EventPayload{
		"title":     t.Title,
		"status":    t.Status,
		"tags":      []string(tags),
		"assignees": added,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.log().WithFields(logrus.Fields{"task_id": t.ID, "actor": actor(opts.ActorID)}).Info("task created")
	return t, nil
}

// TaskUpdateOptions carries the fields to change. Nil fields are left as they
// are; Tags and AssigneeIDs replace the whole set when given.
type TaskUpdateOptions struct {
	ID          int64
	Title       *string
	Description *string
	StartDate   *string
	DueDate     *string
	Status      *string
	Priority    *string
	Category    *string
	Tags        *[]string
	AssigneeIDs *[]int64
	ActorID     int64
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	tx, err := e.Store.Begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := tx.ActiveTask(opts.ID)
	if err != nil {
		return t, err
	}
	original := t
	if opts.Title != nil {
		title := strings.TrimSpace(*opts.Title)
		if title == "" {
			return original, invalid("title", "is required")
		}
		t.Title = title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.StartDate != nil {
		if t.StartDate, err = optionalDate("start_date", *opts.StartDate); err != nil {
			return original, err
		}
	}
	if opts.DueDate != nil {
		if t.DueDate, err = requireDate("due_date", *opts.DueDate); err != nil {
			return original, err
		}
	}
	if opts.Category != nil {
		t.Category = strings.TrimSpace(*opts.Category)
	}
	if opts.Priority != nil {
		if t.Priority, err = domain.ParsePriority(*opts.Priority); err != nil {
			return original, &ValidationError{Field: "priority", Reason: err.Error(), Err: err}
		}
	}
	now := e.now()
	if opts.Status != nil {
		status, err := domain.ParseStatus(*opts.Status)
		if err != nil {
			return original, &ValidationError{Field: "status", Reason: err.Error(), Err: err}
		}
		setStatus(&t, status, now)
	}
	ts := domain.Timestamp(now)
	t.UpdatedAt = laterOf(ts, t.CreatedAt)
	if err := tx.PutTask(t); err != nil {
		return original, err
	}
	payload := events.EventPayload{
		"from_status": original.Status,
		"to_status":   t.Status,
	}
	if opts.Tags != nil {
		tags, err := domain.NewTagSet(*opts.Tags)
		if err != nil {
			return original, &ValidationError{Field: "tags", Reason: err.Error(), Err: err}
		}
		if err := tx.SetTags(t.ID, tags); err != nil {
			return original, err
		}
		payload["tags"] = []string(tags)
	}
	var added []int64
	if opts.AssigneeIDs != nil {
		if added, err = tx.SetAssignees(t.ID, dedupe(*opts.AssigneeIDs), ts); err != nil {
			return original, &ValidationError{Field: "assignee_ids", Reason: err.Error(), Err: err}
		}
		payload["assignees"] = tx.AssigneesOf(t.ID)
	}
	notify(tx, added, opts.ActorID, t.ID, domain.NotificationAssignment,
		fmt.Sprintf("You were assigned to %q", t.Title), ts)
	notify(tx, without(tx.AssigneesOf(t.ID), added), opts.ActorID, t.ID, domain.NotificationUpdate,
		fmt.Sprintf("%q was updated", t.Title), ts)
	if _, err := e.writer().Append(tx, "task.updated", "task", entityID(t.ID), actor(opts.ActorID), payload); err != nil {
		return original, err
	}
	if err := tx.Commit(); err != nil {
		return original, err
	}
	return t, nil
}

// GetTask returns an active task.
func (e Engine) GetTask(id int64) (domain.Task, error) {
	return e.Store.Snapshot().ActiveTask(id)
}

// MoveTask sets the status a board column stands for. Unknown column labels
// move the task to pending.
func (e Engine) MoveTask(ctx context.Context, id int64, bucket domain.Bucket, actorID int64) (domain.Task, error) {
	tx, err := e.Store.Begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := tx.ActiveTask(id)
	if err != nil {
		return t, err
	}
	from := t.Status
	now := e.now()
	setStatus(&t, domain.StatusFor(bucket), now)
	t.UpdatedAt = laterOf(domain.Timestamp(now), t.CreatedAt)
	if err := tx.PutTask(t); err != nil {
		return t, err
	}
	if _, err := e.writer().Append(tx, "task.moved", "task", entityID(t.ID), actor(actorID), events.EventPayload{
		"bucket":      string(bucket),
		"from_status": from,
		"to_status":   t.Status,
	}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

// setStatus applies a status change, stamping completed_date on entry into
// completed and clearing it on exit.
func setStatus(t *domain.Task, status domain.Status, now time.Time) {
	if status == domain.StatusCompleted && t.Status != domain.StatusCompleted {
		d := domain.DateOf(now)
		t.CompletedDate = &d
	}
	if status != domain.StatusCompleted {
		t.CompletedDate = nil
	}
	t.Status = status
}

// laterOf keeps updated_at from ever falling behind created_at when the clock
// steps backwards.
func laterOf(ts, createdAt string) string {
	if ts < createdAt {
		return createdAt
	}
	return ts
}

func requireDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	return optionalDate(field, v)
}

func optionalDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	d, ok := domain.ParseDate(v)
	if !ok {
		return "", invalid(field, "must be a YYYY-MM-DD date")
	}
	return domain.DateOf(d), nil
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func without(ids, drop []int64) []int64 {
	var out []int64
	for _, id := range ids {
		keep := true
		for _, d := range drop {
			if d == id {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, id)
		}
	}
	return out
}
