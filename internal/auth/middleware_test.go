package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kemeter/ring/internal/types"
)

type fakeResolver struct {
	users map[string]*types.User // keyed by token hash
}

func (f *fakeResolver) GetUserByToken(hash string) (*types.User, error) {
	u, ok := f.users[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func TestMiddleware(t *testing.T) {
	token := "ring_valid-token"
	resolver := &fakeResolver{users: map[string]*types.User{
		HashToken(token): {ID: "u1", Username: "admin", Status: types.UserActive},
	}}

	var seen *types.User
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token passes and injects user", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/deployments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if seen == nil || seen.Username != "admin" {
			t.Errorf("UserFrom = %+v, want admin", seen)
		}
	})

	t.Run("missing header gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/deployments", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("Content-Type = %q, want JSON", ct)
		}
		if !strings.Contains(rec.Body.String(), "authentication required") {
			t.Errorf("body = %q, want authentication required", rec.Body.String())
		}
	})

	t.Run("unknown token gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/deployments", nil)
		req.Header.Set("Authorization", "Bearer ring_bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("disabled account gets 401", func(t *testing.T) {
		disabled := "ring_disabled-token"
		resolver.users[HashToken(disabled)] = &types.User{ID: "u2", Username: "old", Status: types.UserDisabled}

		req := httptest.NewRequest(http.MethodGet, "/deployments", nil)
		req.Header.Set("Authorization", "Bearer "+disabled)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestUserFromOutsideRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if u := UserFrom(req.Context()); u != nil {
		t.Errorf("UserFrom on bare context = %+v, want nil", u)
	}
}
