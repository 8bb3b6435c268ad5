package engine

import (
	"context"
	"errors"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/store"
)

func tagError(err error) error {
	reason := err.Error()
	switch {
	case errors.Is(err, domain.ErrEmptyTag):
		reason = "must not be blank"
	case errors.Is(err, domain.ErrDuplicateTag):
		reason = "already present on task"
	}
	return &ValidationError{Field: "tag", Reason: reason, Err: err}
}

// AddTag appends a tag to an active task and returns the resulting set.
func (e Engine) AddTag(ctx context.Context, id int64, tag string, actorID int64) (domain.TagSet, error) {
	var out domain.TagSet
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		t, err := tx.ActiveTask(id)
		if err != nil {
			return err
		}
		tags, err := tx.TagsOf(id).Add(tag)
		if err != nil {
			return tagError(err)
		}
		if err := tx.SetTags(id, tags); err != nil {
			return err
		}
		t.UpdatedAt = laterOf(domain.Timestamp(e.now()), t.CreatedAt)
		if err := tx.PutTask(t); err != nil {
			return err
		}
		out = tags
		_, err = e.writer().Append(tx, "task.tag.added", "task", entityID(id), actor(actorID), events.EventPayload{"tag": tags[len(tags)-1]})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveTag drops a tag. Removing a tag the task does not carry changes
// nothing and is not an error.
func (e Engine) RemoveTag(ctx context.Context, id int64, tag string, actorID int64) (domain.TagSet, error) {
	st := e.Store.Snapshot()
	if _, err := st.ActiveTask(id); err != nil {
		return nil, err
	}
	if !st.TagsOf(id).Has(tag) {
		return st.TagsOf(id), nil
	}
	var out domain.TagSet
	err := e.Store.Update(ctx, func(tx *store.Tx) error {
		t, err := tx.ActiveTask(id)
		if err != nil {
			return err
		}
		out = tx.TagsOf(id).Remove(tag)
		if err := tx.SetTags(id, out); err != nil {
			return err
		}
		t.UpdatedAt = laterOf(domain.Timestamp(e.now()), t.CreatedAt)
		if err := tx.PutTask(t); err != nil {
			return err
		}
		_, err = e.writer().Append(tx, "task.tag.removed", "task", entityID(id), actor(actorID), events.EventPayload{"tag": tag})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
