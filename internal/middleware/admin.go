package middleware

import (
	"net/http"

	"github.com/conexx/hub/internal/contextkeys"
	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/internal/handler"
)

// AdminOnly rejects callers without the admin role. Must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(contextkeys.UserRole).(string)
		if !ok || role != domain.RoleAdmin {
			handler.JSON(w, http.StatusForbidden, map[string]string{"error": "forbidden: admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
