package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/engine/auth"
	"taskhub/internal/view"
)

type taskPath struct {
	ID int64 `path:"id"`
}

type taskBody struct {
	Body TaskResponse `json:"body"`
}

func (h *handlers) registerTasks(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.engine.CreateTask(ctx, engine.TaskCreateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			StartDate:   input.Body.StartDate,
			DueDate:     input.Body.DueDate,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			Category:    input.Body.Category,
			Tags:        input.Body.Tags,
			AssigneeIDs: input.Body.AssigneeIDs,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(t.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*taskBody, error) {
		return h.taskBody(input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		_, err := h.engine.UpdateTask(ctx, engine.TaskUpdateOptions{
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			StartDate:   input.Body.StartDate,
			DueDate:     input.Body.DueDate,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			Category:    input.Body.Category,
			Tags:        input.Body.Tags,
			AssigneeIDs: input.Body.AssigneeIDs,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Move a task to the trash",
		Description: "Declined unless confirm=true; a declined delete changes nothing.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      int64 `path:"id"`
		Confirm bool  `query:"confirm"`
	}) (*struct {
		Body DeleteResponse `json:"body"`
	}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		deleted, err := h.engine.TrashTask(ctx, input.ID, actorID, confirmation(input.Confirm))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body DeleteResponse `json:"body"`
		}{Body: DeleteResponse{Deleted: deleted}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/move",
		Summary:     "Drop a task onto a board column",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64           `path:"id"`
		Body MoveTaskRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		bucket := strings.TrimSpace(input.Body.Bucket)
		if bucket == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "bucket is required", nil)
		}
		drag := h.engine.NewDragSession()
		drag.Start(input.ID)
		if _, _, err := drag.Drop(ctx, domain.Bucket(bucket), actorID); err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-tag",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/tags",
		Summary:     "Add a tag to a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64         `path:"id"`
		Body AddTagRequest `json:"body"`
	}) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := h.engine.AddTag(ctx, input.ID, input.Body.Tag, actorID); err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-tag",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/tags/{tag}",
		Summary:     "Remove a tag from a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID  int64  `path:"id"`
		Tag string `path:"tag"`
	}) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := h.engine.RemoveTag(ctx, input.ID, input.Tag, actorID); err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(input.ID)
	})
}

func (h *handlers) registerTrash(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-trash",
		Method:      http.MethodGet,
		Path:        "/trash",
		Summary:     "Trashed tasks, most recent first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body listBody[TaskResponse] `json:"body"`
	}, error) {
		snap := h.engine.Store.Snapshot()
		return &struct {
			Body listBody[TaskResponse] `json:"body"`
		}{Body: listBody[TaskResponse]{Items: mapTasks(view.Trash(snap), snap)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-task",
		Method:      http.MethodPost,
		Path:        "/trash/{id}/restore",
		Summary:     "Restore a trashed task with its tags",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*taskBody, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := h.engine.RestoreTask(ctx, input.ID, actorID); err != nil {
			return nil, h.handleError(err)
		}
		return h.taskBody(input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "purge-task",
		Method:      http.MethodDelete,
		Path:        "/trash/{id}",
		Summary:     "Permanently delete a trashed task",
		Description: "Declined unless confirm=true. Requires the trash.purge permission.",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      int64 `path:"id"`
		Confirm bool  `query:"confirm"`
	}) (*struct {
		Body DeleteResponse `json:"body"`
	}, error) {
		actorID, err := requirePermission(ctx, auth.PermTaskPurge)
		if err != nil {
			return nil, h.handleError(err)
		}
		deleted, err := h.engine.PurgeTask(ctx, input.ID, actorID, confirmation(input.Confirm))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body DeleteResponse `json:"body"`
		}{Body: DeleteResponse{Deleted: deleted}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "empty-trash",
		Method:      http.MethodDelete,
		Path:        "/trash",
		Summary:     "Permanently delete every trashed task",
		Description: "Declined unless confirm=true. Requires the trash.empty permission.",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Confirm bool `query:"confirm"`
	}) (*struct {
		Body EmptyTrashResponse `json:"body"`
	}, error) {
		actorID, err := requirePermission(ctx, auth.PermTrashEmpty)
		if err != nil {
			return nil, h.handleError(err)
		}
		n, err := h.engine.EmptyTrash(ctx, actorID, confirmation(input.Confirm))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body EmptyTrashResponse `json:"body"`
		}{Body: EmptyTrashResponse{Purged: n}}, nil
	})
}

func (h *handlers) taskBody(id int64) (*taskBody, error) {
	resp, err := h.card(id)
	if err != nil {
		return nil, h.handleError(err)
	}
	return &taskBody{Body: resp}, nil
}

func confirmation(ok bool) engine.Confirm {
	return func() bool { return ok }
}
