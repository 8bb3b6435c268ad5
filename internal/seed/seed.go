// Package seed reads the entity source a store starts from: the embedded mock
// data set, or a YAML file with the same layout.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"taskhub/internal/domain"
	"taskhub/internal/store"
)

//go:embed default.yml
var defaultYAML []byte

type file struct {
	Users       []userRecord        `yaml:"users"`
	Tasks       []taskRecord        `yaml:"tasks"`
	Assignments []domain.Assignment `yaml:"assignments"`
	Comments    []commentRecord     `yaml:"comments"`
}

type userRecord struct {
	ID        int64  `yaml:"id"`
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	FullName  string `yaml:"full_name"`
	Role      string `yaml:"role"`
	IsActive  bool   `yaml:"is_active"`
	CreatedAt string `yaml:"created_at"`
}

type taskRecord struct {
	ID            int64    `yaml:"id"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	StartDate     string   `yaml:"start_date"`
	DueDate       string   `yaml:"due_date"`
	CompletedDate *string  `yaml:"completed_date"`
	Status        string   `yaml:"status"`
	Priority      string   `yaml:"priority"`
	Category      string   `yaml:"category"`
	CreatedAt     string   `yaml:"created_at"`
	UpdatedAt     string   `yaml:"updated_at"`
	IsTrashed     bool     `yaml:"is_trashed"`
	TrashedAt     *string  `yaml:"trashed_at"`
	Tags          []string `yaml:"tags"`
}

type commentRecord struct {
	ID              int64  `yaml:"id"`
	UserID          int64  `yaml:"user_id"`
	TaskID          int64  `yaml:"task_id"`
	ParentCommentID *int64 `yaml:"parent_comment_id"`
	Text            string `yaml:"text"`
	CreatedAt       string `yaml:"created_at"`
}

// Default returns the embedded mock data set.
func Default() (store.Seed, error) {
	return Parse(defaultYAML)
}

// Load reads a seed file. An empty path selects the embedded data set.
func Load(path string) (store.Seed, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return store.Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes seed YAML, normalizing legacy status and role spellings.
func Parse(data []byte) (store.Seed, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return store.Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	out := store.Seed{Tags: map[int64][]string{}}
	for _, u := range f.Users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return store.Seed{}, fmt.Errorf("user %d: %w", u.ID, err)
		}
		out.Users = append(out.Users, domain.User{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			FullName:  u.FullName,
			Role:      role,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	for _, r := range f.Tasks {
		t, err := r.task()
		if err != nil {
			return store.Seed{}, fmt.Errorf("task %d: %w", r.ID, err)
		}
		out.Tasks = append(out.Tasks, t)
		if len(r.Tags) > 0 {
			out.Tags[r.ID] = r.Tags
		}
	}
	out.Assignments = f.Assignments
	for _, c := range f.Comments {
		out.Comments = append(out.Comments, domain.Comment{
			ID:              c.ID,
			UserID:          c.UserID,
			TaskID:          c.TaskID,
			ParentCommentID: c.ParentCommentID,
			Text:            c.Text,
			CreatedAt:       c.CreatedAt,
		})
	}
	return out, nil
}

func (r taskRecord) task() (domain.Task, error) {
	if r.ID <= 0 {
		return domain.Task{}, fmt.Errorf("id must be positive")
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Task{}, err
	}
	priority, err := domain.ParsePriority(r.Priority)
	if err != nil {
		return domain.Task{}, err
	}
	if r.UpdatedAt < r.CreatedAt {
		r.UpdatedAt = r.CreatedAt
	}
	return domain.Task{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		StartDate:     r.StartDate,
		DueDate:       r.DueDate,
		CompletedDate: r.CompletedDate,
		Status:        status,
		Priority:      priority,
		Category:      r.Category,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		IsTrashed:     r.IsTrashed,
		TrashedAt:     r.TrashedAt,
	}, nil
}

// NewStore loads path (or the embedded data) and builds a store from it.
func NewStore(path string) (*store.Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return store.New(s)
}
