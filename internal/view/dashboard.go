// Package view derives read models from a store snapshot. Every function here
// is pure: it allocates fresh results and never mutates its inputs.
package view

import (
	"slices"
	"strings"
	"time"

	"taskhub/internal/domain"
)

const DefaultShortlistSize = 5

type Summary struct {
	Overdue   int `json:"overdue_count"`
	DueToday  int `json:"due_today_count"`
	Completed int `json:"completed_count"`
}

// Breakdown counts tasks per display priority. Urgent is folded into High.
type Breakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type Dashboard struct {
	Today     string        `json:"today" format:"date"`
	Summary   Summary       `json:"summary"`
	Breakdown Breakdown     `json:"priority_breakdown"`
	Upcoming  []domain.Task `json:"upcoming"`
}

// Summarize counts overdue, due-today and completed tasks relative to the
// calendar date of today. Tasks with an unreadable due date are neither overdue
// nor due today.
func Summarize(tasks []domain.Task, today time.Time) Summary {
	day, _ := domain.ParseDate(domain.DateOf(today))
	var s Summary
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			s.Completed++
		}
		due, ok := domain.ParseDate(t.DueDate)
		if !ok {
			continue
		}
		switch {
		case due.Equal(day):
			s.DueToday++
		case due.Before(day) && t.Status != domain.StatusCompleted:
			s.Overdue++
		}
	}
	return s
}

func PriorityBreakdown(tasks []domain.Task) Breakdown {
	var b Breakdown
	for _, t := range tasks {
		switch t.Priority.DisplayBucket() {
		case domain.PriorityHigh:
			b.High++
		case domain.PriorityMedium:
			b.Medium++
		case domain.PriorityLow:
			b.Low++
		}
	}
	return b
}

// Upcoming returns the first n non-trashed tasks ordered by due date. The
// ordering compares the raw ISO strings, which sorts correctly for zero-padded
// dates. n <= 0 selects DefaultShortlistSize.
func Upcoming(tasks []domain.Task, n int) []domain.Task {
	if n <= 0 {
		n = DefaultShortlistSize
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsTrashed {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		return strings.Compare(a.DueDate, b.DueDate)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// BuildDashboard assembles the dashboard over the active collection.
func BuildDashboard(active []domain.Task, today time.Time, shortlist int) Dashboard {
	return Dashboard{
		Today:     domain.DateOf(today),
		Summary:   Summarize(active, today),
		Breakdown: PriorityBreakdown(active),
		Upcoming:  Upcoming(active, shortlist),
	}
}
