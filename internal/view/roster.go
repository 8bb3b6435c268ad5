package view

import (
	"slices"
	"strings"

	"taskhub/internal/domain"
	"taskhub/internal/store"
)

// Card is a task with its tags and assignees resolved.
type Card struct {
	domain.Task
	Tags      []string      `json:"tags"`
	Assignees []domain.User `json:"assignees"`
}

func Cards(tasks []domain.Task, idx Lookup) []Card {
	out := make([]Card, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, CardOf(t, idx))
	}
	return out
}

func CardOf(t domain.Task, idx Lookup) Card {
	c := Card{Task: t, Tags: []string{}, Assignees: []domain.User{}}
	c.Tags = append(c.Tags, idx.TagsOf(t.ID)...)
	for _, uid := range idx.AssigneesOf(t.ID) {
		if u, err := idx.User(uid); err == nil {
			c.Assignees = append(c.Assignees, u)
		}
	}
	return c
}

// Trash lists trashed tasks, most recently trashed first.
func Trash(st *store.State) []domain.Task {
	out := st.Trashed()
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		return strings.Compare(deref(b.TrashedAt), deref(a.TrashedAt))
	})
	return out
}

type Member struct {
	domain.User
	OpenTasks int `json:"open_tasks"`
}

// Team lists users by id with the number of active, not completed tasks
// assigned to each.
func Team(st *store.State) []Member {
	open := map[int64]int{}
	for _, t := range st.Active() {
		if t.Status == domain.StatusCompleted {
			continue
		}
		for _, uid := range st.AssigneesOf(t.ID) {
			open[uid]++
		}
	}
	out := make([]Member, 0, len(st.Users))
	for _, u := range st.Users {
		out = append(out, Member{User: u, OpenTasks: open[u.ID]})
	}
	slices.SortStableFunc(out, func(a, b Member) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
