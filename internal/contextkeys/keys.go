// Package contextkeys holds the request context keys shared by middleware and handlers.
package contextkeys

type contextKey string

const (
	// UserID is the authenticated user's ID.
	UserID contextKey = "userID"
	// UserEmail is the authenticated user's email.
	UserEmail contextKey = "userEmail"
	// UserRole is the authenticated user's role, domain.RoleAdmin or domain.RoleOwner.
	UserRole contextKey = "userRole"
)
