package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/engine/auth"
	"taskhub/internal/session"
	"taskhub/internal/store"
	"taskhub/internal/view"
)

// Config for the HTTP API handler.
type Config struct {
	Engine    engine.Engine
	Views     *view.Cache
	Sessions  session.Issuer
	BasePath  string
	Shortlist int
	Log       logrus.FieldLogger
	// Now supplies the default reference date for dashboards and reminders.
	Now func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"due_date: is required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"due_date\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

type handlers struct {
	engine    engine.Engine
	views     *view.Cache
	sessions  session.Issuer
	shortlist int
	log       logrus.FieldLogger
	now       func() time.Time
}

// New returns an HTTP handler exposing the TaskHub API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Engine.Store == nil {
		return nil, errors.New("server: engine has no store")
	}
	h := &handlers{
		engine:    cfg.Engine,
		views:     cfg.Views,
		sessions:  cfg.Sessions,
		shortlist: cfg.Shortlist,
		log:       cfg.Log,
		now:       cfg.Now,
	}
	if h.views == nil {
		c, err := view.NewCache(0)
		if err != nil {
			return nil, err
		}
		h.views = c
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	if h.now == nil {
		h.now = time.Now
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(h.log))
	router.Use(newAuthMiddleware(basePath, cfg.Sessions, cfg.Engine.Store))
	hcfg := huma.DefaultConfig("TaskHub API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	h.registerSession(group)
	h.registerViews(group)
	h.registerTasks(group)
	h.registerTrash(group)
	h.registerActivity(group)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

// requestLogger tags each request with an id and logs it once served.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"elapsed_ms": time.Since(start).Milliseconds(),
			}).Debug("request served")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func (h *handlers) handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"permission": fe.Permission})
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), map[string]any{"field": ve.Field, "reason": ve.Reason})
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrInactiveUser):
		return newAPIError(http.StatusUnauthorized, "unauthenticated", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicate):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
	}
	h.log.WithError(err).Error("request failed")
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	public := map[string]bool{
		path.Join(basePath, "health"):     true,
		path.Join(basePath, "auth/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if public[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>TaskHub API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Sign in with POST auth/login, then send Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func (h *handlers) registerSession(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Sign in as a user and receive a session token",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		username := strings.TrimSpace(input.Body.Username)
		if username == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "username is required", nil)
		}
		u, err := h.engine.Store.Snapshot().UserByUsername(username)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "unauthenticated", "unknown user", nil)
		}
		s, err := h.sessions.Issue(u)
		if err != nil {
			return nil, h.handleError(err)
		}
		h.log.WithField("user_id", u.ID).Info("session issued")
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: sessionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current session user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		s, ok := session.FromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
		}
		s.Token = ""
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: sessionResponse(s)}, nil
	})
}

func (h *handlers) registerViews(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Summary counts, priority breakdown and upcoming tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Today string `query:"today" doc:"Reference date, YYYY-MM-DD. Defaults to the server's current date."`
	}) (*struct {
		Body view.Dashboard `json:"body"`
	}, error) {
		today, err := h.today(input.Today)
		if err != nil {
			return nil, err
		}
		d := view.BuildDashboard(h.engine.Store.Snapshot().Active(), today, h.shortlist)
		return &struct {
			Body view.Dashboard `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List active tasks, filtered and sorted",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ViewQuery
		Sort string `query:"sort" doc:"title, due_date, priority or assignee"`
		Dir  string `query:"dir" doc:"asc or desc"`
	}) (*struct {
		Body listBody[TaskResponse] `json:"body"`
	}, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		field, dir, perr := view.ParseSort(input.Sort, input.Dir)
		if perr != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", perr.Error(), nil)
		}
		snap := h.engine.Store.Snapshot()
		res := h.views.Derive(snap, view.Params{Mode: view.ModeList, Filter: f, Sort: field, Dir: dir})
		return &struct {
			Body listBody[TaskResponse] `json:"body"`
		}{Body: listBody[TaskResponse]{Items: mapTasks(res.Tasks, snap)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Kanban board of active tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ViewQuery
	}) (*struct {
		Body BoardResponse `json:"body"`
	}, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		snap := h.engine.Store.Snapshot()
		res := h.views.Derive(snap, view.Params{Mode: view.ModeKanban, Filter: f})
		return &struct {
			Body BoardResponse `json:"body"`
		}{Body: boardResponse(*res.Board, snap)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "Every tag in use on an active task",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body listBody[string] `json:"body"`
	}, error) {
		return &struct {
			Body listBody[string] `json:"body"`
		}{Body: listBody[string]{Items: nonNilSlice(h.engine.Store.Snapshot().AllTags())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "Every category in use on an active task",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body listBody[string] `json:"body"`
	}, error) {
		return &struct {
			Body listBody[string] `json:"body"`
		}{Body: listBody[string]{Items: nonNilSlice(h.engine.Store.Snapshot().Categories())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "team",
		Method:      http.MethodGet,
		Path:        "/team",
		Summary:     "Users with their open task counts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body listBody[MemberResponse] `json:"body"`
	}, error) {
		members := view.Team(h.engine.Store.Snapshot())
		out := make([]MemberResponse, 0, len(members))
		for _, m := range members {
			out = append(out, memberResponse(m))
		}
		return &struct {
			Body listBody[MemberResponse] `json:"body"`
		}{Body: listBody[MemberResponse]{Items: out}}, nil
	})
}

// ViewQuery holds the filter selectors shared by list and board. It is
// exported so huma binds its fields when embedded in an input struct.
type ViewQuery struct {
	Assignee string `query:"assignee" doc:"User id, or all"`
	Category string `query:"category" doc:"Category, or all"`
	Tag      string `query:"tag" doc:"Tag, or all"`
}

func (q ViewQuery) filter() (view.Filter, huma.StatusError) {
	f, err := view.ParseFilter(q.Assignee, q.Category, q.Tag)
	if err != nil {
		return view.Filter{}, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"assignee": q.Assignee})
	}
	return f, nil
}

func (h *handlers) today(raw string) (time.Time, huma.StatusError) {
	if strings.TrimSpace(raw) == "" {
		return h.now(), nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, newAPIError(http.StatusBadRequest, "bad_request", "invalid today", map[string]any{"today": raw})
	}
	return d, nil
}

func (h *handlers) card(id int64) (TaskResponse, error) {
	snap := h.engine.Store.Snapshot()
	t, err := snap.ActiveTask(id)
	if err != nil {
		return TaskResponse{}, err
	}
	return taskResponse(view.CardOf(t, snap)), nil
}

func eventResponse(evt domain.Event) EventResponse {
	payload := map[string]any{}
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		Payload:    payload,
	}
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid cursor")
	}
	return id, nil
}
