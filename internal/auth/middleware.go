package auth

import (
	"context"
	"net/http"

	"github.com/kemeter/ring/internal/types"
)

// TokenResolver looks up the account owning a hashed bearer token. The store
// satisfies it with its token index.
type TokenResolver interface {
	GetUserByToken(hash string) (*types.User, error)
}

type contextKey struct{}

var userKey contextKey

// Middleware requires a valid Authorization: Bearer token on every request
// and injects the resolved user into the request context. Disabled accounts
// are rejected the same way as unknown tokens.
func Middleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := ExtractBearerToken(r.Header.Get("Authorization"))
			if bearer == "" {
				unauthorized(w)
				return
			}
			user, err := resolver.GetUserByToken(HashToken(bearer))
			if err != nil || user == nil || user.Status != types.UserActive {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the user injected by Middleware, or nil outside an
// authenticated request.
func UserFrom(ctx context.Context) *types.User {
	u, _ := ctx.Value(userKey).(*types.User)
	return u
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}` + "\n"))
}
