package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kemeter/ring/internal/auth"
	"github.com/kemeter/ring/internal/types"
)

// apiCreateUser creates an API account. The response never carries the
// password hash or token.
func (s *Server) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	existing, err := s.deps.Store.GetUserByUsername(body.Username)
	if err != nil {
		s.deps.Log.Error("failed to look up user", "username", body.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}

	hash, err := auth.HashPassword(body.Password, s.deps.Pepper)
	if err != nil {
		s.deps.Log.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	now := time.Now().UTC()
	u := types.User{
		ID:        uuid.NewString(),
		Username:  body.Username,
		Password:  hash,
		Status:    types.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Store.CreateUser(&u); err != nil {
		s.deps.Log.Error("failed to create user", "username", u.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, u.View())
}

// apiListUsers lists all accounts without credentials.
func (s *Server) apiListUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := s.deps.Store.ListUsers()
	if err != nil {
		s.deps.Log.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	views := make([]types.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	writeJSON(w, http.StatusOK, views)
}

// apiMe returns the account owning the request's bearer token.
func (s *Server) apiMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user.View())
}

// apiUpdateUser updates an account's username and/or password. Omitted
// fields keep their stored values.
func (s *Server) apiUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Store.GetUser(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var body struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.Username != nil && *body.Username != "" {
		u.Username = *body.Username
	}
	if body.Password != nil && *body.Password != "" {
		hash, err := auth.HashPassword(*body.Password, s.deps.Pepper)
		if err != nil {
			s.deps.Log.Error("failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		u.Password = hash
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.deps.Store.UpdateUser(u); err != nil {
		s.deps.Log.Error("failed to update user", "id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, u.View())
}

// apiDeleteUser removes an account.
func (s *Server) apiDeleteUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Store.GetUser(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.deps.Store.DeleteUser(u.ID); err != nil {
		s.deps.Log.Error("failed to delete user", "id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
