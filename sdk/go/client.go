package taskhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal TaskHub HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type Session struct {
	Token       string   `json:"token"`
	ExpiresAt   string   `json:"expires_at"`
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
}

// Task is a task card: the task with its tags and assignees resolved.
type Task struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	StartDate     string   `json:"start_date,omitempty"`
	DueDate       string   `json:"due_date"`
	CompletedDate *string  `json:"completed_date,omitempty"`
	Status        string   `json:"status"`
	Bucket        string   `json:"bucket"`
	Priority      string   `json:"priority"`
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags"`
	Assignees     []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	} `json:"assignees"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	IsTrashed bool    `json:"is_trashed"`
	TrashedAt *string `json:"trashed_at,omitempty"`
}

type Column struct {
	Bucket string `json:"bucket"`
	Tasks  []Task `json:"tasks"`
}

type Board struct {
	Columns []Column `json:"columns"`
}

type Dashboard struct {
	Today   string `json:"today"`
	Summary struct {
		Overdue   int `json:"overdue_count"`
		DueToday  int `json:"due_today_count"`
		Completed int `json:"completed_count"`
	} `json:"summary"`
	Breakdown struct {
		High   int `json:"high"`
		Medium int `json:"medium"`
		Low    int `json:"low"`
	} `json:"priority_breakdown"`
	Upcoming []Task `json:"upcoming"`
}

type Member struct {
	User
	OpenTasks int `json:"open_tasks"`
}

type Comment struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	TaskID          int64  `json:"task_id"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	Text            string `json:"text"`
	CreatedAt       string `json:"created_at"`
}

type Notification struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	TaskID    *int64  `json:"task_id,omitempty"`
	Message   string  `json:"message"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
	SentAt    *string `json:"sent_at,omitempty"`
	IsRead    bool    `json:"is_read"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// TaskInput carries create fields.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	DueDate     string   `json:"due_date"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AssigneeIDs []int64  `json:"assignee_ids,omitempty"`
}

// TaskPatch carries update fields; nil fields are left unchanged.
type TaskPatch struct {
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

// ListQuery selects and orders tasks. Empty fields do not restrict.
type ListQuery struct {
	Assignee string
	Category string
	Tag      string
	Sort     string
	Dir      string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	for k, val := range map[string]string{
		"assignee": q.Assignee,
		"category": q.Category,
		"tag":      q.Tag,
		"sort":     q.Sort,
		"dir":      q.Dir,
	} {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type items[T any] struct {
	Items []T `json:"items"`
}

// Login signs in and keeps the returned token on the client.
func (c *Client) Login(ctx context.Context, username string) (Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{"username": username}, &resp); err != nil {
		return resp, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

func (c *Client) Me(ctx context.Context) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// Dashboard returns the dashboard for today, or the server's date when today
// is empty.
func (c *Client) Dashboard(ctx context.Context, today string) (Dashboard, error) {
	endpoint := "dashboard"
	if today != "" {
		endpoint += "?today=" + url.QueryEscape(today)
	}
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context, q ListQuery) ([]Task, error) {
	var resp items[Task]
	err := c.do(ctx, http.MethodGet, withQuery("tasks", q.values()), nil, &resp)
	return resp.Items, err
}

func (c *Client) Board(ctx context.Context, q ListQuery) (Board, error) {
	v := q.values()
	v.Del("sort")
	v.Del("dir")
	var resp Board
	err := c.do(ctx, http.MethodGet, withQuery("board", v), nil, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d", id), patch, &resp)
	return resp, err
}

// TrashTask moves a task to the trash. Without confirm the server declines and
// the result is false.
func (c *Client) TrashTask(ctx context.Context, id int64, confirm bool) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d?confirm=%t", id, confirm), nil, &resp)
	return resp.Deleted, err
}

func (c *Client) MoveTask(ctx context.Context, id int64, bucket string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("tasks/%d/move", id), map[string]any{"bucket": bucket}, &resp)
	return resp, err
}

func (c *Client) AddTag(ctx context.Context, id int64, tag string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("tasks/%d/tags", id), map[string]any{"tag": tag}, &resp)
	return resp, err
}

func (c *Client) RemoveTag(ctx context.Context, id int64, tag string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d/tags/%s", id, url.PathEscape(tag)), nil, &resp)
	return resp, err
}

func (c *Client) Comments(ctx context.Context, taskID int64) ([]Comment, error) {
	var resp items[Comment]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d/comments", taskID), nil, &resp)
	return resp.Items, err
}

// AddComment posts a comment; parentID makes it a reply.
func (c *Client) AddComment(ctx context.Context, taskID int64, text string, parentID *int64) (Comment, error) {
	body := map[string]any{"text": text}
	if parentID != nil {
		body["parent_comment_id"] = *parentID
	}
	var resp Comment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("tasks/%d/comments", taskID), body, &resp)
	return resp, err
}

func (c *Client) Trash(ctx context.Context) ([]Task, error) {
	var resp items[Task]
	err := c.do(ctx, http.MethodGet, "trash", nil, &resp)
	return resp.Items, err
}

func (c *Client) Restore(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("trash/%d/restore", id), nil, &resp)
	return resp, err
}

func (c *Client) Purge(ctx context.Context, id int64, confirm bool) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("trash/%d?confirm=%t", id, confirm), nil, &resp)
	return resp.Deleted, err
}

func (c *Client) EmptyTrash(ctx context.Context, confirm bool) (int, error) {
	var resp struct {
		Purged int `json:"purged"`
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("trash?confirm=%t", confirm), nil, &resp)
	return resp.Purged, err
}

func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	endpoint := "notifications"
	if unreadOnly {
		endpoint += "?unread=true"
	}
	var resp items[Notification]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) MarkRead(ctx context.Context, id int64) (Notification, error) {
	var resp Notification
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("notifications/%d/read", id), nil, &resp)
	return resp, err
}

func (c *Client) QueueReminders(ctx context.Context, today string) (int, error) {
	endpoint := "reminders"
	if today != "" {
		endpoint += "?today=" + url.QueryEscape(today)
	}
	var resp struct {
		Queued int `json:"queued"`
	}
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Queued, err
}

func (c *Client) Team(ctx context.Context) ([]Member, error) {
	var resp items[Member]
	err := c.do(ctx, http.MethodGet, "team", nil, &resp)
	return resp.Items, err
}

func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var resp items[string]
	err := c.do(ctx, http.MethodGet, "tags", nil, &resp)
	return resp.Items, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp items[string]
	err := c.do(ctx, http.MethodGet, "categories", nil, &resp)
	return resp.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		v.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", v), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func withQuery(endpoint string, v url.Values) string {
	if len(v) == 0 {
		return endpoint
	}
	return endpoint + "?" + v.Encode()
}

func (c *Client) base() string {
	basePath := strings.Trim(c.BasePath, "/")
	if basePath == "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + basePath
}
