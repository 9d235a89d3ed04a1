// Package middleware holds the HTTP middleware for the broadcast server.
package middleware

import (
	"net/http"
	"strings"
)

// PathGuard rejects any request whose path contains a parent-directory
// segment with 403 before any filesystem access can happen. Both the decoded
// path and the raw request target are checked, so an escaped `%2e%2e` does
// not slip through.
func PathGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasParentSegment(r.URL.Path) || hasParentSegment(r.RequestURI) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasParentSegment(path string) bool {
	lowered := strings.ToLower(path)
	lowered = strings.ReplaceAll(lowered, "%2e", ".")
	for _, seg := range strings.FieldsFunc(lowered, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
