package domain

type Task struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	StartDate     string   `json:"start_date,omitempty" format:"date"`
	DueDate       string   `json:"due_date" format:"date"`
	CompletedDate *string  `json:"completed_date,omitempty" format:"date"`
	Status        Status   `json:"status" enum:"pending,in_progress,completed,on_hold"`
	Priority      Priority `json:"priority" enum:"low,medium,high,urgent"`
	Category      string   `json:"category,omitempty"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
	IsTrashed     bool     `json:"is_trashed"`
	TrashedAt     *string  `json:"trashed_at,omitempty" format:"date-time"`
}

type User struct {
	ID        int64  `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email" yaml:"email"`
	FullName  string `json:"full_name" yaml:"full_name"`
	Role      Role   `json:"role" yaml:"role" enum:"group_leader,member"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
	CreatedAt string `json:"created_at" yaml:"created_at" format:"date-time"`
}

type Assignment struct {
	ID           int64  `json:"id" yaml:"id"`
	UserID       int64  `json:"user_id" yaml:"user_id"`
	TaskID       int64  `json:"task_id" yaml:"task_id"`
	AssignedDate string `json:"assigned_date" yaml:"assigned_date" format:"date-time"`
}

type Comment struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	TaskID          int64  `json:"task_id"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	Text            string `json:"text"`
	CreatedAt       string `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	TaskID    *int64           `json:"task_id,omitempty"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type" enum:"reminder,update,assignment,comment"`
	CreatedAt string           `json:"created_at" format:"date-time"`
	SentAt    *string          `json:"sent_at,omitempty" format:"date-time"`
	IsRead    bool             `json:"is_read"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
