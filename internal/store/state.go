package store

import (
	"sort"

	"taskhub/internal/domain"
)

// State is one published version of the entity store. A State returned by
// Store.Snapshot must be treated as read-only.
type State struct {
	Version       uint64
	Tasks         []domain.Task
	Users         []domain.User
	Assignments   []domain.Assignment
	Tags          map[int64]domain.TagSet
	TrashedTags   map[int64]domain.TagSet
	Comments      []domain.Comment
	Notifications []domain.Notification
	Events        []domain.Event
}

func (s *State) clone() *State {
	out := &State{
		Version:       s.Version,
		Tasks:         append([]domain.Task(nil), s.Tasks...),
		Users:         append([]domain.User(nil), s.Users...),
		Assignments:   append([]domain.Assignment(nil), s.Assignments...),
		Tags:          make(map[int64]domain.TagSet, len(s.Tags)),
		TrashedTags:   make(map[int64]domain.TagSet, len(s.TrashedTags)),
		Comments:      append([]domain.Comment(nil), s.Comments...),
		Notifications: append([]domain.Notification(nil), s.Notifications...),
		Events:        append([]domain.Event(nil), s.Events...),
	}
	for id, tags := range s.Tags {
		out.Tags[id] = tags
	}
	for id, tags := range s.TrashedTags {
		out.TrashedTags[id] = tags
	}
	return out
}

// Active returns the tasks that are not trashed, in insertion order.
func (s *State) Active() []domain.Task {
	out := make([]domain.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if !t.IsTrashed {
			out = append(out, t)
		}
	}
	return out
}

// Trashed returns soft-deleted tasks, in insertion order.
func (s *State) Trashed() []domain.Task {
	var out []domain.Task
	for _, t := range s.Tasks {
		if t.IsTrashed {
			out = append(out, t)
		}
	}
	return out
}

func (s *State) Task(id int64) (domain.Task, error) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, ErrNotFound
}

// ActiveTask is Task restricted to the active collection.
func (s *State) ActiveTask(id int64) (domain.Task, error) {
	t, err := s.Task(id)
	if err != nil {
		return t, err
	}
	if t.IsTrashed {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (s *State) User(id int64) (domain.User, error) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (s *State) UserByUsername(username string) (domain.User, error) {
	for _, u := range s.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

// AssigneesOf returns the user ids assigned to a task in assignment order.
func (s *State) AssigneesOf(taskID int64) []int64 {
	var out []int64
	for _, a := range s.Assignments {
		if a.TaskID == taskID {
			out = append(out, a.UserID)
		}
	}
	return out
}

func (s *State) TagsOf(taskID int64) domain.TagSet {
	return s.Tags[taskID]
}

// AllTags is the sorted union of every active task's tags.
func (s *State) AllTags() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tags := range s.Tags {
		for _, t := range tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Categories lists the distinct non-empty categories of active tasks, sorted.
func (s *State) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range s.Tasks {
		if t.IsTrashed || t.Category == "" {
			continue
		}
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

func (s *State) CommentsFor(taskID int64) []domain.Comment {
	var out []domain.Comment
	for _, c := range s.Comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out
}

func (s *State) Comment(id int64) (domain.Comment, error) {
	for _, c := range s.Comments {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Comment{}, ErrNotFound
}

// NotificationsFor returns a user's notifications, newest first.
func (s *State) NotificationsFor(userID int64) []domain.Notification {
	var out []domain.Notification
	for i := len(s.Notifications) - 1; i >= 0; i-- {
		if s.Notifications[i].UserID == userID {
			out = append(out, s.Notifications[i])
		}
	}
	return out
}

func (s *State) Notification(id int64) (domain.Notification, error) {
	for _, n := range s.Notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Notification{}, ErrNotFound
}

// Unsent returns notifications without a sent_at stamp, oldest first.
func (s *State) Unsent() []domain.Notification {
	var out []domain.Notification
	for _, n := range s.Notifications {
		if n.SentAt == nil {
			out = append(out, n)
		}
	}
	return out
}

// EventFilters narrows EventsBefore.
type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	Before     int64
	Limit      int
}

// EventsBefore returns events newest first, starting below f.Before when set.
func (s *State) EventsBefore(f EventFilters) []domain.Event {
	var out []domain.Event
	for i := len(s.Events) - 1; i >= 0; i-- {
		e := s.Events[i]
		if f.Before > 0 && e.ID >= f.Before {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.EntityKind != "" && e.EntityKind != f.EntityKind {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
