package engine

import (
	"context"

	"taskhub/internal/domain"
)

// Draft is an uncommitted task form. Its methods change only the draft; the
// store sees nothing until SubmitDraft.
type Draft struct {
	TaskID      int64
	Title       string
	Description string
	StartDate   string
	DueDate     string
	Status      domain.Status
	Priority    domain.Priority
	Category    string
	Tags        domain.TagSet
	Assignees   []int64
}

// NewDraft starts a form for a new task.
func NewDraft() *Draft {
	return &Draft{Status: domain.StatusPending, Priority: domain.PriorityMedium}
}

// EditDraft starts a form prefilled from an active task.
func (e Engine) EditDraft(id int64) (*Draft, error) {
	st := e.Store.Snapshot()
	t, err := st.ActiveTask(id)
	if err != nil {
		return nil, err
	}
	return &Draft{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		StartDate:   t.StartDate,
		DueDate:     t.DueDate,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		Tags:        append(domain.TagSet(nil), st.TagsOf(id)...),
		Assignees:   st.AssigneesOf(id),
	}, nil
}

// ToggleAssignee flips userID's membership in the draft's assignee set.
func (d *Draft) ToggleAssignee(userID int64) {
	for i, id := range d.Assignees {
		if id == userID {
			d.Assignees = append(d.Assignees[:i:i], d.Assignees[i+1:]...)
			return
		}
	}
	d.Assignees = append(d.Assignees, userID)
}

func (d *Draft) HasAssignee(userID int64) bool {
	for _, id := range d.Assignees {
		if id == userID {
			return true
		}
	}
	return false
}

func (d *Draft) AddTag(tag string) error {
	tags, err := d.Tags.Add(tag)
	if err != nil {
		return tagError(err)
	}
	d.Tags = tags
	return nil
}

func (d *Draft) RemoveTag(tag string) {
	d.Tags = d.Tags.Remove(tag)
}

// SubmitDraft commits the form: a create for a new draft, otherwise an update
// that replaces every field, the tag set and the assignee set.
func (e Engine) SubmitDraft(ctx context.Context, d *Draft, actorID int64) (domain.Task, error) {
	tags := append([]string{}, d.Tags...)
	assignees := append([]int64{}, d.Assignees...)
	if d.TaskID == 0 {
		return e.CreateTask(ctx, TaskCreateOptions{
			Title:       d.Title,
			Description: d.Description,
			StartDate:   d.StartDate,
			DueDate:     d.DueDate,
			Status:      string(d.Status),
			Priority:    string(d.Priority),
			Category:    d.Category,
			Tags:        tags,
			AssigneeIDs: assignees,
			ActorID:     actorID,
		})
	}
	status := string(d.Status)
	priority := string(d.Priority)
	return e.UpdateTask(ctx, TaskUpdateOptions{
		ID:          d.TaskID,
		Title:       &d.Title,
		Description: &d.Description,
		StartDate:   &d.StartDate,
		DueDate:     &d.DueDate,
		Status:      &status,
		Priority:    &priority,
		Category:    &d.Category,
		Tags:        &tags,
		AssigneeIDs: &assignees,
		ActorID:     actorID,
	})
}

// DragSession tracks one board drag gesture.
type DragSession struct {
	eng     Engine
	taskID  int64
	dragged bool
}

func (e Engine) NewDragSession() *DragSession {
	return &DragSession{eng: e}
}

func (s *DragSession) Start(taskID int64) {
	s.taskID = taskID
	s.dragged = true
}

func (s *DragSession) Dragging() (int64, bool) {
	return s.taskID, s.dragged
}

func (s *DragSession) Cancel() {
	s.taskID = 0
	s.dragged = false
}

// Drop moves the dragged task onto bucket and ends the gesture. Without a
// prior Start it does nothing and reports false.
func (s *DragSession) Drop(ctx context.Context, bucket domain.Bucket, actorID int64) (domain.Task, bool, error) {
	if !s.dragged {
		return domain.Task{}, false, nil
	}
	id := s.taskID
	s.Cancel()
	t, err := s.eng.MoveTask(ctx, id, bucket, actorID)
	if err != nil {
		return t, false, err
	}
	return t, true, nil
}
