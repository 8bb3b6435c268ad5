package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"taskhub/internal/domain"
)

type SortField string

const (
	SortNone     SortField = ""
	SortTitle    SortField = "title"
	SortDueDate  SortField = "due_date"
	SortPriority SortField = "priority"
	SortAssignee SortField = "assignee"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseSort(field, dir string) (SortField, Direction, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(field)))
	switch f {
	case SortNone, SortTitle, SortDueDate, SortPriority, SortAssignee:
	default:
		return "", "", fmt.Errorf("invalid sort field %q", field)
	}
	d := Direction(strings.ToLower(strings.TrimSpace(dir)))
	switch d {
	case "":
		d = Asc
	case Asc, Desc:
	default:
		return "", "", fmt.Errorf("invalid sort direction %q", dir)
	}
	return f, d, nil
}

// Sort returns a stably sorted copy of tasks. Descending order negates the
// comparator, so equal keys keep their input order in both directions.
func Sort(tasks []domain.Task, idx Lookup, field SortField, dir Direction) []domain.Task {
	out := slices.Clone(tasks)
	cmp := comparator(field, idx)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		c := cmp(a, b)
		if dir == Desc {
			return -c
		}
		return c
	})
	return out
}

func comparator(field SortField, idx Lookup) func(a, b domain.Task) int {
	switch field {
	case SortTitle:
		return func(a, b domain.Task) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortDueDate:
		return func(a, b domain.Task) int {
			return dueTime(a).Compare(dueTime(b))
		}
	case SortPriority:
		return func(a, b domain.Task) int {
			return a.Priority.Rank() - b.Priority.Rank()
		}
	case SortAssignee:
		return func(a, b domain.Task) int {
			return strings.Compare(firstAssigneeName(a.ID, idx), firstAssigneeName(b.ID, idx))
		}
	}
	return nil
}

// dueTime is the zero time for unreadable dates, sorting them first.
func dueTime(t domain.Task) time.Time {
	d, _ := domain.ParseDate(t.DueDate)
	return d
}

func firstAssigneeName(taskID int64, idx Lookup) string {
	ids := idx.AssigneesOf(taskID)
	if len(ids) == 0 {
		return ""
	}
	u, err := idx.User(ids[0])
	if err != nil {
		return ""
	}
	return u.FullName
}
