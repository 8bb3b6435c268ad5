package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
)

// ParseStatus normalizes a status value. The space-separated spellings used by
// older mock data ("in progress", "on hold") are accepted.
func ParseStatus(s string) (Status, error) {
	norm := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	switch norm {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOnHold:
		return norm, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

// Rank orders priorities for sorting; unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// DisplayBucket folds urgent into high for dashboard charts.
func (p Priority) DisplayBucket() Priority {
	if p == PriorityUrgent {
		return PriorityHigh
	}
	return p
}

type Role string

const (
	RoleGroupLeader Role = "group_leader"
	RoleMember      Role = "member"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	switch r {
	case RoleGroupLeader, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

type NotificationType string

const (
	NotificationReminder   NotificationType = "reminder"
	NotificationUpdate     NotificationType = "update"
	NotificationAssignment NotificationType = "assignment"
	NotificationComment    NotificationType = "comment"
)
