package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"taskhub/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrTxDone    = errors.New("transaction already finished")
	ErrDuplicate = errors.New("duplicate id")
)

// Store holds the current State. Readers take lock-free snapshots; writers are
// serialized through Begin and publish a new State on Commit.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[State]
}

// Seed is the initial entity set a Store is loaded from.
type Seed struct {
	Users       []domain.User
	Tasks       []domain.Task
	Assignments []domain.Assignment
	Tags        map[int64][]string
	Comments    []domain.Comment
}

// New validates seed and builds a Store at version 0.
func New(seed Seed) (*Store, error) {
	st := &State{
		Tags:        map[int64]domain.TagSet{},
		TrashedTags: map[int64]domain.TagSet{},
	}
	users := map[int64]bool{}
	for _, u := range seed.Users {
		if users[u.ID] {
			return nil, fmt.Errorf("seed user %d: %w", u.ID, ErrDuplicate)
		}
		users[u.ID] = true
		st.Users = append(st.Users, u)
	}
	tasks := map[int64]domain.Task{}
	for _, t := range seed.Tasks {
		if _, ok := tasks[t.ID]; ok {
			return nil, fmt.Errorf("seed task %d: %w", t.ID, ErrDuplicate)
		}
		tasks[t.ID] = t
		st.Tasks = append(st.Tasks, t)
	}
	for _, a := range seed.Assignments {
		if _, ok := tasks[a.TaskID]; !ok {
			return nil, fmt.Errorf("seed assignment %d: task %d: %w", a.ID, a.TaskID, ErrNotFound)
		}
		if !users[a.UserID] {
			return nil, fmt.Errorf("seed assignment %d: user %d: %w", a.ID, a.UserID, ErrNotFound)
		}
		st.Assignments = append(st.Assignments, a)
	}
	for id, raw := range seed.Tags {
		t, ok := tasks[id]
		if !ok {
			return nil, fmt.Errorf("seed tags: task %d: %w", id, ErrNotFound)
		}
		tags, err := domain.NewTagSet(raw)
		if err != nil {
			return nil, fmt.Errorf("seed tags for task %d: %w", id, err)
		}
		if len(tags) == 0 {
			continue
		}
		if t.IsTrashed {
			st.TrashedTags[id] = tags
		} else {
			st.Tags[id] = tags
		}
	}
	for _, c := range seed.Comments {
		if _, ok := tasks[c.TaskID]; !ok {
			return nil, fmt.Errorf("seed comment %d: task %d: %w", c.ID, c.TaskID, ErrNotFound)
		}
		st.Comments = append(st.Comments, c)
	}
	s := &Store{}
	s.cur.Store(st)
	return s, nil
}

// Snapshot returns the latest committed State.
func (s *Store) Snapshot() *State {
	return s.cur.Load()
}

func (s *Store) Version() uint64 {
	return s.Snapshot().Version
}

// Begin starts a write transaction. Only one transaction is open at a time;
// callers must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Tx{State: s.cur.Load().clone(), store: s}, nil
}

// Update runs fn inside a transaction, committing when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx is a private working copy of the State. Reads through the embedded State
// see the transaction's own writes.
type Tx struct {
	*State
	store *Store
	done  bool
}

func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.State.Version++
	tx.store.cur.Store(tx.State)
	tx.store.mu.Unlock()
	return nil
}

// Rollback discards the transaction. It is safe to call after Commit.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.mu.Unlock()
	return nil
}

// NextTaskID is one past the largest id among active and trashed tasks.
func (tx *Tx) NextTaskID() int64 {
	var max int64
	for _, t := range tx.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func (tx *Tx) InsertTask(t domain.Task) error {
	if _, err := tx.Task(t.ID); err == nil {
		return fmt.Errorf("task %d: %w", t.ID, ErrDuplicate)
	}
	tx.Tasks = append(tx.Tasks, t)
	return nil
}

// PutTask replaces the stored task with the same id.
func (tx *Tx) PutTask(t domain.Task) error {
	for i := range tx.Tasks {
		if tx.Tasks[i].ID == t.ID {
			tx.Tasks[i] = t
			return nil
		}
	}
	return ErrNotFound
}

// DeleteTask removes a task and everything hanging off it.
func (tx *Tx) DeleteTask(id int64) error {
	idx := -1
	for i := range tx.Tasks {
		if tx.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	tx.Tasks = append(tx.Tasks[:idx:idx], tx.Tasks[idx+1:]...)
	delete(tx.Tags, id)
	delete(tx.TrashedTags, id)

	assignments := tx.Assignments[:0:0]
	for _, a := range tx.Assignments {
		if a.TaskID != id {
			assignments = append(assignments, a)
		}
	}
	tx.Assignments = assignments

	comments := tx.Comments[:0:0]
	for _, c := range tx.Comments {
		if c.TaskID != id {
			comments = append(comments, c)
		}
	}
	tx.Comments = comments
	return nil
}

// SetTags replaces the tag set of an active task. An empty set drops the entry.
func (tx *Tx) SetTags(taskID int64, tags domain.TagSet) error {
	if _, err := tx.ActiveTask(taskID); err != nil {
		return err
	}
	if len(tags) == 0 {
		delete(tx.Tags, taskID)
		return nil
	}
	tx.Tags[taskID] = append(domain.TagSet(nil), tags...)
	return nil
}

// StashTags moves a task's tags out of the live index into the trash stash.
func (tx *Tx) StashTags(taskID int64) {
	if tags, ok := tx.Tags[taskID]; ok {
		tx.TrashedTags[taskID] = tags
		delete(tx.Tags, taskID)
	}
}

// UnstashTags is the inverse of StashTags.
func (tx *Tx) UnstashTags(taskID int64) {
	if tags, ok := tx.TrashedTags[taskID]; ok {
		tx.Tags[taskID] = tags
		delete(tx.TrashedTags, taskID)
	}
}

// SetAssignees makes userIDs the exact assignee set of a task. Existing
// assignments for users that stay keep their id and assigned date. It returns
// the ids of newly assigned users.
func (tx *Tx) SetAssignees(taskID int64, userIDs []int64, assignedAt string) ([]int64, error) {
	if _, err := tx.Task(taskID); err != nil {
		return nil, err
	}
	want := map[int64]bool{}
	for _, uid := range userIDs {
		if _, err := tx.User(uid); err != nil {
			return nil, fmt.Errorf("user %d: %w", uid, err)
		}
		want[uid] = true
	}
	var nextID int64
	have := map[int64]bool{}
	kept := make([]domain.Assignment, 0, len(tx.Assignments)+len(userIDs))
	for _, a := range tx.Assignments {
		if a.ID > nextID {
			nextID = a.ID
		}
		if a.TaskID == taskID {
			if !want[a.UserID] {
				continue
			}
			have[a.UserID] = true
		}
		kept = append(kept, a)
	}
	var added []int64
	for _, uid := range userIDs {
		if have[uid] {
			continue
		}
		have[uid] = true
		nextID++
		kept = append(kept, domain.Assignment{ID: nextID, UserID: uid, TaskID: taskID, AssignedDate: assignedAt})
		added = append(added, uid)
	}
	tx.Assignments = kept
	return added, nil
}

func (tx *Tx) InsertComment(c domain.Comment) domain.Comment {
	var max int64
	for _, existing := range tx.Comments {
		if existing.ID > max {
			max = existing.ID
		}
	}
	c.ID = max + 1
	tx.Comments = append(tx.Comments, c)
	return c
}

func (tx *Tx) InsertNotification(n domain.Notification) domain.Notification {
	var max int64
	for _, existing := range tx.Notifications {
		if existing.ID > max {
			max = existing.ID
		}
	}
	n.ID = max + 1
	tx.Notifications = append(tx.Notifications, n)
	return n
}

func (tx *Tx) PutNotification(n domain.Notification) error {
	for i := range tx.Notifications {
		if tx.Notifications[i].ID == n.ID {
			tx.Notifications[i] = n
			return nil
		}
	}
	return ErrNotFound
}

// AppendEvent assigns the next event id and records e.
func (tx *Tx) AppendEvent(e domain.Event) domain.Event {
	e.ID = int64(len(tx.Events)) + 1
	if n := len(tx.Events); n > 0 {
		e.ID = tx.Events[n-1].ID + 1
	}
	tx.Events = append(tx.Events, e)
	return e
}
