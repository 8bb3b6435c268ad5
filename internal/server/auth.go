package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"taskhub/internal/engine/auth"
	"taskhub/internal/session"
	"taskhub/internal/store"
)

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware resolves the bearer token into a session.Session before
// any API handler runs. Health, login and the OpenAPI document are public.
func newAuthMiddleware(basePath string, issuer session.Issuer, st *store.Store) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "auth/login"):   true,
		path.Join(basePath, "openapi.json"): true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthenticated", "authentication required", nil))
				return
			}
			s, err := issuer.Resolve(token, st.Snapshot())
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthenticated", "invalid or expired session", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(session.WithSession(req.Context(), s)))
		})
	}
}

func userIDFromContext(ctx context.Context) (int64, huma.StatusError) {
	id, err := session.UserID(ctx)
	if err != nil {
		return 0, newAPIError(http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
	}
	return id, nil
}

// requirePermission returns the signed-in user's id when their role holds perm.
func requirePermission(ctx context.Context, perm string) (int64, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return 0, newAPIError(http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
	}
	if err := auth.Require(s.User, perm); err != nil {
		return 0, err
	}
	return s.User.ID, nil
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
