package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kemeter/ring/internal/auth"
	"github.com/kemeter/ring/internal/types"
)

// apiLogin exchanges a username and password for a bearer token. Each login
// rotates the account token; the previous one stops resolving.
func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.deps.Store.GetUserByUsername(body.Username)
	if err != nil {
		s.deps.Log.Error("failed to look up user", "username", body.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || user.Status != types.UserActive || !auth.CheckPassword(user.Password, body.Password, s.deps.Pepper) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, hash, err := auth.GenerateToken()
	if err != nil {
		s.deps.Log.Error("failed to generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	now := time.Now().UTC()
	user.TokenHash = hash
	user.LastLoginAt = &now
	if err := s.deps.Store.UpdateUser(user); err != nil {
		s.deps.Log.Error("failed to persist token", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// apiHealthz is the liveness ping.
func (s *Server) apiHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
