package handler

import (
	"net/http"

	"github.com/conexx/hub/internal/contextkeys"
	"github.com/conexx/hub/internal/service"
)

// actorFrom reads the caller set by the auth middleware.
func actorFrom(r *http.Request) (service.Actor, bool) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)
	role, _ := r.Context().Value(contextkeys.UserRole).(string)
	if userID == "" {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

func unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}
