package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// APIKey guards routes with a static X-API-KEY header check. This is a
// single-operator tool; there are no user accounts.
func APIKey(key string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-KEY") != key {
				http.Error(w, "Invalid API Key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
