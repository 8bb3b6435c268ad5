package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/engine/auth"
	"taskhub/internal/store"
)

func (h *handlers) registerActivity(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/comments",
		Summary:     "Comments on a task, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body listBody[domain.Comment] `json:"body"`
	}, error) {
		comments, err := h.engine.Comments(input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body listBody[domain.Comment] `json:"body"`
		}{Body: listBody[domain.Comment]{Items: nonNilSlice(comments)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/comments",
		Summary:       "Comment on a task or reply to a comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := h.engine.AddComment(ctx, engine.CommentOptions{
			TaskID:   input.ID,
			UserID:   userID,
			ParentID: input.Body.ParentCommentID,
			Text:     input.Body.Text,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "The signed-in user's notifications, newest first",
	}, func(ctx context.Context, input *struct {
		Unread bool `query:"unread"`
	}) (*struct {
		Body listBody[domain.Notification] `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body listBody[domain.Notification] `json:"body"`
		}{Body: listBody[domain.Notification]{Items: nonNilSlice(h.engine.Notifications(userID, input.Unread))}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{id}/read",
		Summary:     "Mark a notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := h.engine.MarkNotificationRead(ctx, input.ID, userID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "queue-reminders",
		Method:      http.MethodPost,
		Path:        "/reminders",
		Summary:     "Queue due-date reminders for assignees",
		Description: "Requires the reminders.queue permission.",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Today string `query:"today"`
	}) (*struct {
		Body RemindersResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.PermRemindersQueue); err != nil {
			return nil, h.handleError(err)
		}
		today, terr := h.today(input.Today)
		if terr != nil {
			return nil, terr
		}
		n, err := h.engine.QueueReminders(ctx, today)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body RemindersResponse `json:"body"`
		}{Body: RemindersResponse{Queued: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Activity log, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		before, err := parseCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items := h.engine.Store.Snapshot().EventsBefore(store.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     before,
			Limit:      limit + 1,
		})
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}
