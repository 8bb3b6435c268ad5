package server

import (
	"taskhub/internal/domain"
	"taskhub/internal/engine/auth"
	"taskhub/internal/session"
	"taskhub/internal/view"
)

// Request payloads

type LoginRequest struct {
	Username string `json:"username"`
}

// CreateTaskRequest leaves field validation to the engine, so a missing title
// or due date comes back as validation_failed.
type CreateTaskRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"start_date,omitempty" example:"2024-01-10"`
	DueDate     string   `json:"due_date,omitempty" example:"2024-01-20"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AssigneeIDs []int64  `json:"assignee_ids,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	StartDate   *string   `json:"start_date,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	AssigneeIDs *[]int64  `json:"assignee_ids,omitempty"`
}

type MoveTaskRequest struct {
	Bucket string `json:"bucket" example:"In Progress"`
}

type AddTagRequest struct {
	Tag string `json:"tag"`
}

type AddCommentRequest struct {
	Text            string `json:"text"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// Response payloads

type TaskResponse struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	StartDate     string        `json:"start_date,omitempty" format:"date"`
	DueDate       string        `json:"due_date" format:"date"`
	CompletedDate *string       `json:"completed_date,omitempty" format:"date"`
	Status        string        `json:"status" enum:"pending,in_progress,completed,on_hold"`
	Bucket        string        `json:"bucket" enum:"To Do,In Progress,Done"`
	Priority      string        `json:"priority" enum:"low,medium,high,urgent"`
	Category      string        `json:"category,omitempty"`
	Tags          []string      `json:"tags"`
	Assignees     []UserSummary `json:"assignees"`
	CreatedAt     string        `json:"created_at" format:"date-time"`
	UpdatedAt     string        `json:"updated_at" format:"date-time"`
	IsTrashed     bool          `json:"is_trashed"`
	TrashedAt     *string       `json:"trashed_at,omitempty" format:"date-time"`
}

type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type ColumnResponse struct {
	Bucket string         `json:"bucket"`
	Tasks  []TaskResponse `json:"tasks"`
}

type BoardResponse struct {
	Columns []ColumnResponse `json:"columns"`
}

type MemberResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role" enum:"group_leader,member"`
	IsActive  bool   `json:"is_active"`
	OpenTasks int    `json:"open_tasks"`
}

type SessionResponse struct {
	Token       string      `json:"token,omitempty"`
	ExpiresAt   string      `json:"expires_at" format:"date-time"`
	User        domain.User `json:"user"`
	Permissions []string    `json:"permissions"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type EmptyTrashResponse struct {
	Purged int `json:"purged"`
}

type RemindersResponse struct {
	Queued int `json:"queued"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type listBody[T any] struct {
	Items []T `json:"items"`
}

func taskResponse(c view.Card) TaskResponse {
	out := TaskResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		StartDate:     c.StartDate,
		DueDate:       c.DueDate,
		CompletedDate: c.CompletedDate,
		Status:        string(c.Status),
		Bucket:        string(domain.BucketFor(c.Status)),
		Priority:      string(c.Priority),
		Category:      c.Category,
		Tags:          nonNilSlice(c.Tags),
		Assignees:     []UserSummary{},
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		IsTrashed:     c.IsTrashed,
		TrashedAt:     c.TrashedAt,
	}
	for _, u := range c.Assignees {
		out.Assignees = append(out.Assignees, UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName})
	}
	return out
}

func mapTasks(tasks []domain.Task, idx view.Lookup) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, c := range view.Cards(tasks, idx) {
		out = append(out, taskResponse(c))
	}
	return out
}

func boardResponse(b view.Board, idx view.Lookup) BoardResponse {
	out := BoardResponse{Columns: make([]ColumnResponse, 0, len(b.Columns))}
	for _, col := range b.Columns {
		out.Columns = append(out.Columns, ColumnResponse{Bucket: string(col.Bucket), Tasks: mapTasks(col.Tasks, idx)})
	}
	return out
}

func memberResponse(m view.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		FullName:  m.FullName,
		Role:      string(m.Role),
		IsActive:  m.IsActive,
		OpenTasks: m.OpenTasks,
	}
}

func sessionResponse(s session.Session) SessionResponse {
	return SessionResponse{
		Token:       s.Token,
		ExpiresAt:   domain.Timestamp(s.ExpiresAt),
		User:        s.User,
		Permissions: auth.Permissions(s.User.Role),
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
