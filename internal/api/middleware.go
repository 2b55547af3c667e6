// Package api implements the Ladle REST API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ownerKey struct{}

// WithOwner returns ctx carrying the recipe owner scope.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner scope of the request; empty means ownerless.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through and work on ownerless
// recipes. If enabled is true, requests must carry a valid
// "Authorization: Bearer <token>" header and are scoped to owner.
func AuthMiddleware(enabled bool, token, owner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			got := strings.TrimPrefix(auth, "Bearer ")
			if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
