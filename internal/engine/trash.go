package engine

import (
	"context"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/store"
)

// Confirm is asked before any destructive operation runs. A nil Confirm
// declines.
type Confirm func() bool

// Confirmed is a Confirm that always agrees.
func Confirmed() bool { return true }

func (c Confirm) ok() bool {
	return c != nil && c()
}

// TrashTask moves an active task to the trash. It reports false with a nil
// error when the confirmation is declined, leaving the store unchanged.
func (e Engine) TrashTask(ctx context.Context, id, actorID int64, confirm Confirm) (bool, error) {
	if _, err := e.Store.Snapshot().ActiveTask(id); err != nil {
		return false, err
	}
	if !confirm.ok() {
		e.log().WithField("task_id", id).Debug("trash declined")
		return false, nil
	}
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		t, err := tx.ActiveTask(id)
		if err != nil {
			return err
		}
		ts := domain.Timestamp(e.now())
		t.IsTrashed = true
		t.TrashedAt = &ts
		t.UpdatedAt = laterOf(ts, t.CreatedAt)
		if err := tx.PutTask(t); err != nil {
			return err
		}
		tx.StashTags(id)
		_, err = e.writer().Append(tx, "task.trashed", "task", entityID(id), actor(actorID), events.EventPayload{"title": t.Title})
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RestoreTask brings a trashed task back with the tags it had.
func (e Engine) RestoreTask(ctx context.Context, id, actorID int64) (domain.Task, error) {
	var restored domain.Task
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		t, err := trashedTask(tx.State, id)
		if err != nil {
			return err
		}
		t.IsTrashed = false
		t.TrashedAt = nil
		t.UpdatedAt = laterOf(domain.Timestamp(e.now()), t.CreatedAt)
		if err := tx.PutTask(t); err != nil {
			return err
		}
		tx.UnstashTags(id)
		restored = t
		_, err = e.writer().Append(tx, "task.restored", "task", entityID(id), actor(actorID), nil)
		return err
	})
	return restored, err
}

// PurgeTask deletes a trashed task for good.
func (e Engine) PurgeTask(ctx context.Context, id, actorID int64, confirm Confirm) (bool, error) {
	if _, err := trashedTask(e.Store.Snapshot(), id); err != nil {
		return false, err
	}
	if !confirm.ok() {
		return false, nil
	}
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		if _, err := trashedTask(tx.State, id); err != nil {
			return err
		}
		if err := tx.DeleteTask(id); err != nil {
			return err
		}
		_, err := e.writer().Append(tx, "task.purged", "task", entityID(id), actor(actorID), nil)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// EmptyTrash purges every trashed task and returns how many were removed.
func (e Engine) EmptyTrash(ctx context.Context, actorID int64, confirm Confirm) (int, error) {
	if len(e.Store.Snapshot().Trashed()) == 0 || !confirm.ok() {
		return 0, nil
	}
	var n int
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		n = 0
		for _, t := range tx.Trashed() {
			if err := tx.DeleteTask(t.ID); err != nil {
				return err
			}
			n++
		}
		_, err := e.writer().Append(tx, "trash.emptied", "task", "", actor(actorID), events.EventPayload{"count": n})
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func trashedTask(st *store.State, id int64) (domain.Task, error) {
	t, err := st.Task(id)
	if err != nil {
		return t, err
	}
	if !t.IsTrashed {
		return domain.Task{}, store.ErrNotFound
	}
	return t, nil
}
