package middleware

import (
	"net/http"
)

// AdminMiddleware guards operator endpoints with a shared key.
type AdminMiddleware struct {
	key string
}

// NewAdminMiddleware creates a new admin middleware. An empty key disables
// the admin surface entirely.
func NewAdminMiddleware(key string) *AdminMiddleware {
	return &AdminMiddleware{key: key}
}

// RequireAdmin validates the X-Admin-Key header
func (m *AdminMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.key == "" {
			http.Error(w, `{"error":"admin surface disabled"}`, http.StatusForbidden)
			return
		}
		if r.Header.Get("X-Admin-Key") != m.key {
			http.Error(w, `{"error":"invalid admin key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
