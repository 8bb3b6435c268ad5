package engine_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/store"
)

type testEnv struct {
	Engine engine.Engine
	Store  *store.Store
	Ctx    context.Context
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	st, err := store.New(store.Seed{
		Users: []domain.User{
			{ID: 1, Username: "lead", FullName: "Lena Lead", Role: domain.RoleGroupLeader, IsActive: true},
			{ID: 2, Username: "dev", FullName: "Dev Dana", Role: domain.RoleMember, IsActive: true},
		},
		Tasks: []domain.Task{
			{ID: 1, Title: "Plan", DueDate: "2024-01-10", Status: domain.StatusPending, Priority: domain.PriorityHigh, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"},
			{ID: 2, Title: "Build", DueDate: "2024-01-20", Status: domain.StatusOnHold, Priority: domain.PriorityLow, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"},
			{ID: 3, Title: "Ship", DueDate: "2024-01-30", Status: domain.StatusInProgress, Priority: domain.PriorityUrgent, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"},
		},
		Assignments: []domain.Assignment{{ID: 1, UserID: 2, TaskID: 2}},
		Tags:        map[int64][]string{2: {"backend"}, 3: {"release"}},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	eng := engine.New(st, quietLogger())
	eng.Now = func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Store: st, Ctx: context.Background()}
}

func isValidation(err error, field string) bool {
	var ve *engine.ValidationError
	return errors.As(err, &ve) && ve.Field == field
}

func TestCreateTaskAllocatesNextID(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:       "Docs",
		DueDate:     "2024-02-01",
		Tags:        []string{"docs"},
		AssigneeIDs: []int64{2, 2},
		ActorID:     1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != 4 {
		t.Fatalf("expected id 4, got %d", task.ID)
	}
	if task.CreatedAt != "2024-01-05T12:00:00Z" || task.UpdatedAt != task.CreatedAt {
		t.Fatalf("unexpected timestamps %s %s", task.CreatedAt, task.UpdatedAt)
	}
	if task.Status != domain.StatusPending || task.Priority != domain.PriorityMedium || task.IsTrashed {
		t.Fatalf("unexpected defaults: %+v", task)
	}
	snap := env.Store.Snapshot()
	if got := snap.TagsOf(4); len(got) != 1 || got[0] != "docs" {
		t.Fatalf("tags not stored: %v", got)
	}
	if got := snap.AssigneesOf(4); len(got) != 1 || got[0] != 2 {
		t.Fatalf("assignees: %v", got)
	}
	notes := env.Engine.Notifications(2, true)
	if len(notes) != 1 || notes[0].Type != domain.NotificationAssignment {
		t.Fatalf("expected one assignment notification, got %+v", notes)
	}
	evts := snap.EventsBefore(store.EventFilters{Type: "task.created"})
	if len(evts) != 1 || evts[0].EntityID != "4" || evts[0].ActorID != "1" {
		t.Fatalf("unexpected events %+v", evts)
	}
}

func TestCreateTaskRejectsBlankTitle(t *testing.T) {
	env := newTestEnv(t)
	before := env.Store.Snapshot()
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "", DueDate: "2024-02-01"})
	if !isValidation(err, "title") {
		t.Fatalf("expected title validation error, got %v", err)
	}
	after := env.Store.Snapshot()
	if len(after.Tasks) != len(before.Tasks) || after.Version != before.Version {
		t.Fatalf("store changed on rejected create")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name  string
		opts  engine.TaskCreateOptions
		field string
	}{
		{"missing due", engine.TaskCreateOptions{Title: "x"}, "due_date"},
		{"bad due", engine.TaskCreateOptions{Title: "x", DueDate: "soon"}, "due_date"},
		{"bad status", engine.TaskCreateOptions{Title: "x", DueDate: "2024-02-01", Status: "done"}, "status"},
		{"bad priority", engine.TaskCreateOptions{Title: "x", DueDate: "2024-02-01", Priority: "p0"}, "priority"},
		{"dup tags", engine.TaskCreateOptions{Title: "x", DueDate: "2024-02-01", Tags: []string{"a", "a"}}, "tags"},
		{"unknown user", engine.TaskCreateOptions{Title: "x", DueDate: "2024-02-01", AssigneeIDs: []int64{99}}, "assignee_ids"},
	}
	for _, c := range cases {
		if _, err := env.Engine.CreateTask(env.Ctx, c.opts); !isValidation(err, c.field) {
			t.Fatalf("%s: expected %s validation error, got %v", c.name, c.field, err)
		}
	}
	if v := env.Store.Version(); v != 0 {
		t.Fatalf("expected no commits, version %d", v)
	}
}

func TestCreateTaskAcceptsLegacyStatus(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "x", DueDate: "2024-02-01", Status: "on hold"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusOnHold {
		t.Fatalf("status %s", task.Status)
	}
}

func TestUpdateTaskMergesAndIsolates(t *testing.T) {
	env := newTestEnv(t)
	other := mustTask(t, env, 3)
	title := "Plan v2"
	status := "completed"
	tags := []string{"planning"}
	task, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 1, Title: &title, Status: &status, Tags: &tags, ActorID: 1})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if task.Title != "Plan v2" || task.DueDate != "2024-01-10" || task.Priority != domain.PriorityHigh {
		t.Fatalf("merge wrong: %+v", task)
	}
	if task.CompletedDate == nil || *task.CompletedDate != "2024-01-05" {
		t.Fatalf("completed date not stamped: %v", task.CompletedDate)
	}
	if task.UpdatedAt != "2024-01-05T12:00:00Z" {
		t.Fatalf("updated_at %s", task.UpdatedAt)
	}
	if after := mustTask(t, env, 3); after != other {
		t.Fatalf("update touched another task: %+v", after)
	}
	if got := env.Store.Snapshot().TagsOf(1); len(got) != 1 || got[0] != "planning" {
		t.Fatalf("tags not replaced: %v", got)
	}

	status = "pending"
	task, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 1, Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedDate != nil {
		t.Fatalf("completed date should clear when leaving completed")
	}
}

func TestUpdateTaskRejectsBlankRequiredFields(t *testing.T) {
	env := newTestEnv(t)
	blank := "  "
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 1, Title: &blank}); !isValidation(err, "title") {
		t.Fatalf("expected title error, got %v", err)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 1, DueDate: &blank}); !isValidation(err, "due_date") {
		t.Fatalf("expected due_date error, got %v", err)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 42}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if env.Store.Version() != 0 {
		t.Fatalf("failed updates must not commit")
	}
}

func TestUpdateTaskReplacesAssigneesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ids := []int64{1}
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 2, AssigneeIDs: &ids, ActorID: 2}); err != nil {
		t.Fatal(err)
	}
	if got := env.Store.Snapshot().AssigneesOf(2); len(got) != 1 || got[0] != 1 {
		t.Fatalf("assignees %v", got)
	}
	notes := env.Engine.Notifications(1, false)
	if len(notes) != 1 || notes[0].Type != domain.NotificationAssignment {
		t.Fatalf("notifications %+v", notes)
	}

	desc := "more detail"
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 2, Description: &desc, ActorID: 2}); err != nil {
		t.Fatal(err)
	}
	notes = env.Engine.Notifications(1, false)
	if len(notes) != 2 || notes[0].Type != domain.NotificationUpdate {
		t.Fatalf("expected update notification first, got %+v", notes)
	}
}

func TestTrashRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ok, err := env.Engine.TrashTask(env.Ctx, 3, 1, func() bool { return false })
	if err != nil || ok {
		t.Fatalf("declined trash: ok=%v err=%v", ok, err)
	}
	if _, err := env.Store.Snapshot().ActiveTask(3); err != nil {
		t.Fatalf("task 3 should still be active: %v", err)
	}
	if ok, _ := env.Engine.TrashTask(env.Ctx, 3, 1, nil); ok {
		t.Fatalf("nil confirm must decline")
	}
	if env.Store.Version() != 0 {
		t.Fatalf("declined trash committed")
	}
}

func TestTrashAndRestoreKeepTags(t *testing.T) {
	env := newTestEnv(t)
	ok, err := env.Engine.TrashTask(env.Ctx, 3, 1, engine.Confirmed)
	if err != nil || !ok {
		t.Fatalf("trash: %v", err)
	}
	snap := env.Store.Snapshot()
	if _, err := snap.ActiveTask(3); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("trashed task still active")
	}
	if snap.TagsOf(3) != nil {
		t.Fatalf("tag index still has trashed task")
	}
	trashed := mustTask(t, env, 3)
	if !trashed.IsTrashed || trashed.TrashedAt == nil {
		t.Fatalf("flags not set: %+v", trashed)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: 3}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update of trashed task should fail, got %v", err)
	}

	restored, err := env.Engine.RestoreTask(env.Ctx, 3, 1)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.IsTrashed || restored.TrashedAt != nil {
		t.Fatalf("restore flags: %+v", restored)
	}
	if got := env.Store.Snapshot().TagsOf(3); len(got) != 1 || got[0] != "release" {
		t.Fatalf("tags not restored: %v", got)
	}
	if _, err := env.Engine.RestoreTask(env.Ctx, 3, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("restoring an active task should be not found")
	}
}

func TestPurgeAndEmptyTrash(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []int64{2, 3} {
		if _, err := env.Engine.TrashTask(env.Ctx, id, 1, engine.Confirmed); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.Engine.PurgeTask(env.Ctx, 1, 1, engine.Confirmed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("purging an active task should be not found, got %v", err)
	}
	if ok, err := env.Engine.PurgeTask(env.Ctx, 2, 1, nil); ok || err != nil {
		t.Fatalf("unconfirmed purge: %v %v", ok, err)
	}
	if ok, err := env.Engine.PurgeTask(env.Ctx, 2, 1, engine.Confirmed); !ok || err != nil {
		t.Fatalf("purge: %v %v", ok, err)
	}
	snap := env.Store.Snapshot()
	if _, err := snap.Task(2); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("task 2 should be gone")
	}
	if len(snap.AssigneesOf(2)) != 0 || snap.TrashedTags[2] != nil {
		t.Fatalf("purge left side-table rows")
	}

	n, err := env.Engine.EmptyTrash(env.Ctx, 1, engine.Confirmed)
	if err != nil || n != 1 {
		t.Fatalf("empty trash: n=%d err=%v", n, err)
	}
	if len(env.Store.Snapshot().Trashed()) != 0 {
		t.Fatalf("trash not empty")
	}

	// Purged ids are free again once no higher id remains.
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "after", DueDate: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != 2 {
		t.Fatalf("expected id 2 after purging 2 and 3, got %d", task.ID)
	}
}

func TestTrashedIDsAreNotReused(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.TrashTask(env.Ctx, 3, 1, engine.Confirmed); err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "x", DueDate: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != 4 {
		t.Fatalf("expected id 4, got %d", task.ID)
	}
}

func TestDragMoveIsLossy(t *testing.T) {
	env := newTestEnv(t)
	drag := env.Engine.NewDragSession()
	drag.Start(2)
	task, moved, err := drag.Drop(env.Ctx, domain.BucketInProgress, 1)
	if err != nil || !moved {
		t.Fatalf("drop: %v", err)
	}
	if task.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", task.Status)
	}
	drag.Start(2)
	task, _, err = drag.Drop(env.Ctx, domain.BucketToDo, 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusPending {
		t.Fatalf("expected pending, not on_hold; got %s", task.Status)
	}
}

func TestDropWithoutStartIsNoop(t *testing.T) {
	env := newTestEnv(t)
	drag := env.Engine.NewDragSession()
	_, moved, err := drag.Drop(env.Ctx, domain.BucketDone, 1)
	if err != nil || moved {
		t.Fatalf("expected no-op, moved=%v err=%v", moved, err)
	}
	drag.Start(1)
	drag.Cancel()
	if _, moved, _ := drag.Drop(env.Ctx, domain.BucketDone, 1); moved {
		t.Fatalf("cancelled drag should not move")
	}
	if env.Store.Version() != 0 {
		t.Fatalf("no-op drop committed")
	}
}

func TestMoveUnknownBucketAndCompletion(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.MoveTask(env.Ctx, 3, domain.BucketDone, 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedDate == nil {
		t.Fatalf("move to Done should stamp completed_date")
	}
	task, err = env.Engine.MoveTask(env.Ctx, 3, domain.Bucket("Backlog"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusPending || task.CompletedDate != nil {
		t.Fatalf("unknown bucket: %+v", task)
	}
}

func TestTagAddRemove(t *testing.T) {
	env := newTestEnv(t)
	tags, err := env.Engine.AddTag(env.Ctx, 2, "api", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[1] != "api" {
		t.Fatalf("tags %v", tags)
	}
	if _, err := env.Engine.AddTag(env.Ctx, 2, "api", 1); !errors.Is(err, domain.ErrDuplicateTag) || !isValidation(err, "tag") {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if _, err := env.Engine.AddTag(env.Ctx, 2, " \t", 1); !errors.Is(err, domain.ErrEmptyTag) {
		t.Fatalf("expected blank rejection, got %v", err)
	}
	if _, err := env.Engine.AddTag(env.Ctx, 2, "API", 1); err != nil {
		t.Fatalf("case differs, should be accepted: %v", err)
	}
	version := env.Store.Version()
	tags, err = env.Engine.RemoveTag(env.Ctx, 2, "missing", 1)
	if err != nil || len(tags) != 3 {
		t.Fatalf("idempotent remove: %v %v", tags, err)
	}
	if env.Store.Version() != version {
		t.Fatalf("removing an absent tag committed")
	}
	tags, err = env.Engine.RemoveTag(env.Ctx, 2, "backend", 1)
	if err != nil || len(tags) != 2 || tags[0] != "api" {
		t.Fatalf("remove: %v %v", tags, err)
	}

	if _, err := env.Engine.AddTag(env.Ctx, 2, " urgent ", 1); err != nil {
		t.Fatal(err)
	}
	tags, err = env.Engine.RemoveTag(env.Ctx, 2, " urgent ", 1)
	if err != nil || len(tags) != 2 || slices.Contains(tags, "urgent") {
		t.Fatalf("padded remove should match the trimmed tag: %v %v", tags, err)
	}
}

func TestDraftTogglesWithoutTouchingStore(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.EditDraft(2)
	if err != nil {
		t.Fatal(err)
	}
	d.ToggleAssignee(1)
	d.ToggleAssignee(2)
	if err := d.AddTag("api"); err != nil {
		t.Fatal(err)
	}
	if err := d.AddTag("api"); !isValidation(err, "tag") {
		t.Fatalf("draft should reject duplicate tag")
	}
	d.RemoveTag("backend")
	if !d.HasAssignee(1) || d.HasAssignee(2) {
		t.Fatalf("toggle wrong: %v", d.Assignees)
	}
	snap := env.Store.Snapshot()
	if got := snap.AssigneesOf(2); len(got) != 1 || got[0] != 2 {
		t.Fatalf("draft leaked into store: %v", got)
	}
	if env.Store.Version() != 0 {
		t.Fatalf("draft edits committed")
	}

	task, err := env.Engine.SubmitDraft(env.Ctx, d, 1)
	if err != nil {
		t.Fatal(err)
	}
	snap = env.Store.Snapshot()
	if got := snap.AssigneesOf(task.ID); len(got) != 1 || got[0] != 1 {
		t.Fatalf("assignees after submit: %v", got)
	}
	if got := snap.TagsOf(task.ID); len(got) != 1 || got[0] != "api" {
		t.Fatalf("tags after submit: %v", got)
	}
}

func TestSubmitNewDraftCreates(t *testing.T) {
	env := newTestEnv(t)
	d := engine.NewDraft()
	d.Title = "From form"
	d.DueDate = "2024-04-01"
	d.ToggleAssignee(2)
	task, err := env.Engine.SubmitDraft(env.Ctx, d, 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != 4 || task.Status != domain.StatusPending {
		t.Fatalf("created %+v", task)
	}
	d = engine.NewDraft()
	if _, err := env.Engine.SubmitDraft(env.Ctx, d, 1); !isValidation(err, "title") {
		t.Fatalf("blank draft should be rejected, got %v", err)
	}
}

func TestCommentsAndReplies(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{TaskID: 2, UserID: 1, Text: "status?"})
	if err != nil {
		t.Fatal(err)
	}
	parent := c.ID
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{TaskID: 2, UserID: 2, ParentID: &parent, Text: "soon"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{TaskID: 3, UserID: 2, ParentID: &parent, Text: "x"}); !isValidation(err, "parent_comment_id") {
		t.Fatalf("cross-task reply should fail, got %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{TaskID: 2, UserID: 2, Text: "  "}); !isValidation(err, "text") {
		t.Fatalf("blank comment should fail")
	}
	comments, err := env.Engine.Comments(2)
	if err != nil || len(comments) != 2 {
		t.Fatalf("comments %v %v", comments, err)
	}
	// Dana is the assignee; only Lena's comment notifies her.
	notes := env.Engine.Notifications(2, true)
	if len(notes) != 1 || notes[0].Type != domain.NotificationComment {
		t.Fatalf("notifications %+v", notes)
	}
}

func TestNotificationReadAndSent(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{TaskID: 2, UserID: 1, Text: "ping"}); err != nil {
		t.Fatal(err)
	}
	n := env.Engine.Notifications(2, true)[0]
	if _, err := env.Engine.MarkNotificationRead(env.Ctx, n.ID, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("other user's notification should be not found")
	}
	read, err := env.Engine.MarkNotificationRead(env.Ctx, n.ID, 2)
	if err != nil || !read.IsRead {
		t.Fatalf("mark read: %v", err)
	}
	if len(env.Engine.Notifications(2, true)) != 0 {
		t.Fatalf("unread filter")
	}
	sent, err := env.Engine.MarkNotificationSent(env.Ctx, n.ID)
	if err != nil || sent.SentAt == nil {
		t.Fatalf("mark sent: %v", err)
	}
	if len(env.Store.Snapshot().Unsent()) != 0 {
		t.Fatalf("still unsent")
	}
}

func TestQueueRemindersOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	today := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	n, err := env.Engine.QueueReminders(env.Ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	// Only task 2 (due 2024-01-20, assigned to Dana) is within the horizon.
	if n != 1 {
		t.Fatalf("expected 1 reminder, got %d", n)
	}
	notes := env.Engine.Notifications(2, false)
	if len(notes) != 1 || notes[0].Type != domain.NotificationReminder {
		t.Fatalf("reminder %+v", notes)
	}
	version := env.Store.Version()
	if n, err := env.Engine.QueueReminders(env.Ctx, today); err != nil || n != 0 {
		t.Fatalf("second run queued %d (%v)", n, err)
	}
	if env.Store.Version() != version {
		t.Fatalf("empty reminder run committed")
	}
}

func mustTask(t *testing.T, env testEnv, id int64) domain.Task {
	t.Helper()
	task, err := env.Store.Snapshot().Task(id)
	if err != nil {
		t.Fatalf("task %d: %v", id, err)
	}
	return task
}
