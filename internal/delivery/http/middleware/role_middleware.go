package middleware

import (
	"net/http"

	"herbalstore-backend/internal/domain"
)

// RequireRole ensures the authenticated user holds one of the given roles.
// MUST be used AFTER AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: No user found in context", http.StatusUnauthorized)
				return
			}

			if !allowed[user.Role] {
				http.Error(w, "Forbidden: Insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminMiddleware restricts a route to admins.
func AdminMiddleware(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin)(next)
}

// StaffMiddleware restricts a route to admins and support agents.
func StaffMiddleware(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleAgent)(next)
}
