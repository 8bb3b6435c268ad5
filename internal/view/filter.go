package view

import (
	"fmt"
	"strconv"
	"strings"

	"taskhub/internal/domain"
)

// Lookup resolves the side tables a derivation needs. *store.State satisfies it.
type Lookup interface {
	AssigneesOf(taskID int64) []int64
	TagsOf(taskID int64) domain.TagSet
	User(id int64) (domain.User, error)
}

// Filter selects tasks. A nil selector matches everything; set selectors are
// combined with AND.
type Filter struct {
	AssigneeID *int64
	Category   *string
	Tag        *string
}

// ParseFilter reads selector values as they arrive from query strings and flags.
// Empty and "all" both mean no restriction.
func ParseFilter(assignee, category, tag string) (Filter, error) {
	var f Filter
	if v := selector(assignee); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid assignee %q", assignee)
		}
		f.AssigneeID = &id
	}
	if v := selector(category); v != "" {
		f.Category = &v
	}
	if v := selector(tag); v != "" {
		f.Tag = &v
	}
	return f, nil
}

// selector maps the exact sentinel "all" to no constraint. Other casings are
// real values, so a category or tag named "All" stays filterable.
func selector(v string) string {
	v = strings.TrimSpace(v)
	if v == "all" {
		return ""
	}
	return v
}

func (f Filter) key() string {
	var b strings.Builder
	if f.AssigneeID != nil {
		fmt.Fprintf(&b, "a=%d;", *f.AssigneeID)
	}
	if f.Category != nil {
		fmt.Fprintf(&b, "c=%q;", *f.Category)
	}
	if f.Tag != nil {
		fmt.Fprintf(&b, "t=%q;", *f.Tag)
	}
	return b.String()
}

func (f Filter) Match(t domain.Task, idx Lookup) bool {
	if f.AssigneeID != nil {
		found := false
		for _, uid := range idx.AssigneesOf(t.ID) {
			if uid == *f.AssigneeID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.Tag != nil && !idx.TagsOf(t.ID).Has(*f.Tag) {
		return false
	}
	return true
}

// Apply keeps the tasks matching f, preserving order.
func Apply(tasks []domain.Task, idx Lookup, f Filter) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, idx) {
			out = append(out, t)
		}
	}
	return out
}
