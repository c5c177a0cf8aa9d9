package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kemeter/ring/internal/types"
)

// apiCreateConfig creates a namespaced config object.
func (s *Server) apiCreateConfig(w http.ResponseWriter, r *http.Request) {
	var c types.Config
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.deps.Store.CreateConfig(&c); err != nil {
		s.deps.Log.Error("failed to create config", "namespace", c.Namespace, "name", c.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create config")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// apiListConfigs lists configs, optionally filtered by repeated namespace=
// query parameters.
func (s *Server) apiListConfigs(w http.ResponseWriter, r *http.Request) {
	filters := map[string][]string{}
	if namespaces := r.URL.Query()["namespace"]; len(namespaces) > 0 {
		filters["namespace"] = namespaces
	}

	configs, err := s.deps.Store.ListConfigs(filters)
	if err != nil {
		s.deps.Log.Error("failed to list configs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list configs")
		return
	}
	if configs == nil {
		configs = []types.Config{}
	}
	writeJSON(w, http.StatusOK, configs)
}

// apiGetConfig fetches one config by id.
func (s *Server) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Store.GetConfig(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get config")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "config not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// apiUpdateConfig replaces a config's name, data and labels. Identity fields
// (id, namespace, created_at) are kept from the stored row. A non-empty data
// payload must be a JSON object.
func (s *Server) apiUpdateConfig(w http.ResponseWriter, r *http.Request) {
	existing, err := s.deps.Store.GetConfig(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update config")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "config not found")
		return
	}

	var c types.Config
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if c.Data != "" {
		obj := map[string]string{}
		if err := json.Unmarshal([]byte(c.Data), &obj); err != nil {
			writeError(w, http.StatusBadRequest, "config data must be a JSON object")
			return
		}
	}

	existing.Name = c.Name
	existing.Data = c.Data
	existing.Labels = c.Labels
	existing.UpdatedAt = time.Now().UTC()

	if err := s.deps.Store.UpdateConfig(existing); err != nil {
		s.deps.Log.Error("failed to update config", "id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update config")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// apiDeleteConfig deletes a config. Deleting a missing config still returns
// 204.
func (s *Server) apiDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteConfig(r.PathValue("id")); err != nil {
		s.deps.Log.Error("failed to delete config", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete config")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
