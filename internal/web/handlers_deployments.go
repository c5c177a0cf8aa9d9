package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// specFingerprint serializes the declarative part of a deployment. Two
// submissions with the same fingerprint describe the same workload; status,
// counters and timestamps do not participate.
func specFingerprint(d *types.Deployment) string {
	spec := struct {
		Namespace    string                 `json:"namespace"`
		Name         string                 `json:"name"`
		Runtime      string                 `json:"runtime"`
		Kind         string                 `json:"kind"`
		Image        string                 `json:"image"`
		Config       types.DeploymentConfig `json:"config"`
		Replicas     uint                   `json:"replicas"`
		Command      []string               `json:"command"`
		Labels       map[string]string      `json:"labels"`
		Secrets      map[string]string      `json:"secrets"`
		Volumes      []types.Volume         `json:"volumes"`
		HealthChecks []types.HealthCheck    `json:"health_checks"`
		Resources    *types.Resources       `json:"resources"`
	}{
		d.Namespace, d.Name, d.Runtime, d.Kind, d.Image, d.Config,
		d.Replicas, d.Command, d.Labels, d.Secrets, d.Volumes,
		d.HealthChecks, d.Resources,
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return ""
	}
	return string(data)
}

// apiCreateDeployment creates a deployment. Any active deployment for the
// same (namespace, name) is marked Deleted first; the scheduler tears its
// containers down on subsequent ticks. Re-submitting an unchanged spec is a
// 409 unless force=true.
func (s *Server) apiCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var d types.Deployment
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unprocessable request body")
		return
	}

	d.Normalize()
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	active, err := s.deps.Store.ActiveByNamespaceName(d.Namespace, d.Name)
	if err != nil {
		s.deps.Log.Error("failed to list active deployments", "namespace", d.Namespace, "name", d.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create deployment")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if !force {
		want := specFingerprint(&d)
		for i := range active {
			if specFingerprint(&active[i]) == want {
				writeError(w, http.StatusConflict, "deployment unchanged")
				return
			}
		}
	}

	now := time.Now().UTC()
	for i := range active {
		active[i].Status = types.StatusDeleted
		active[i].UpdatedAt = now
		if err := s.deps.Store.UpdateDeployment(&active[i]); err != nil {
			s.deps.Log.Error("failed to supersede deployment", "id", active[i].ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create deployment")
			return
		}
	}

	d.ID = uuid.NewString()
	d.Status = types.StatusCreating
	d.RestartCount = 0
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Instances = []string{}
	d.PendingEvents = nil

	if err := s.deps.Store.CreateDeployment(&d); err != nil {
		s.deps.Log.Error("failed to create deployment", "namespace", d.Namespace, "name", d.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create deployment")
		return
	}
	s.recordEvent(&d, types.LevelInfo, types.ReasonDeploymentCreated, "deployment "+d.Namespace+"/"+d.Name+" created")

	writeJSON(w, http.StatusCreated, d)
}

// apiListDeployments lists deployments, optionally filtered by repeated
// namespace= and status= query parameters.
func (s *Server) apiListDeployments(w http.ResponseWriter, r *http.Request) {
	filters := map[string][]string{}
	q := r.URL.Query()
	if namespaces := q["namespace"]; len(namespaces) > 0 {
		filters["namespace"] = namespaces
	}
	if statuses := q["status"]; len(statuses) > 0 {
		filters["status"] = statuses
	}

	deployments, err := s.deps.Store.ListDeployments(filters)
	if err != nil {
		s.deps.Log.Error("failed to list deployments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deployments")
		return
	}
	if deployments == nil {
		deployments = []types.Deployment{}
	}
	writeJSON(w, http.StatusOK, deployments)
}

// apiGetDeployment fetches one deployment, refreshing its instance list from
// the runtime so the caller sees live containers rather than the snapshot
// from the last reconcile.
func (s *Server) apiGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Store.GetDeployment(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get deployment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get deployment")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}

	instances, err := s.deps.Runtime.ListInstances(r.Context(), d.ID, runtime.FilterActive)
	if err != nil {
		s.deps.Log.Warn("failed to refresh instances", "id", d.ID, "error", err)
	} else {
		d.Instances = instances
	}
	if d.Instances == nil {
		d.Instances = []string{}
	}
	writeJSON(w, http.StatusOK, d)
}

// apiDeleteDeployment marks a deployment Deleted. Containers are removed by
// the scheduler on the next tick, then the rows are cleaned up.
func (s *Server) apiDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Store.GetDeployment(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get deployment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete deployment")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}

	d.Status = types.StatusDeleted
	d.UpdatedAt = time.Now().UTC()
	if err := s.deps.Store.UpdateDeployment(d); err != nil {
		s.deps.Log.Error("failed to mark deployment deleted", "id", d.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete deployment")
		return
	}
	s.recordEvent(d, types.LevelInfo, types.ReasonDeploymentDeleted, "deployment "+d.Namespace+"/"+d.Name+" marked for deletion")

	w.WriteHeader(http.StatusNoContent)
}

// apiDeploymentLogs aggregates logs across a deployment's live instances,
// keyed by container id. Unknown deployments yield an empty map rather than
// an error.
func (s *Server) apiDeploymentLogs(w http.ResponseWriter, r *http.Request) {
	out := map[string][]string{}

	d, err := s.deps.Store.GetDeployment(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get deployment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}
	if d == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	tail := r.URL.Query().Get("tail")
	since := r.URL.Query().Get("since")

	instances, err := s.deps.Runtime.ListInstances(r.Context(), d.ID, runtime.FilterActive)
	if err != nil {
		s.deps.Log.Warn("failed to list instances for logs", "id", d.ID, "error", err)
		writeJSON(w, http.StatusOK, out)
		return
	}
	for _, id := range instances {
		lines, err := s.deps.Runtime.Logs(r.Context(), id, tail, since)
		if err != nil {
			s.deps.Log.Warn("failed to read container logs", "container", id, "error", err)
			continue
		}
		if lines == nil {
			lines = []string{}
		}
		out[id] = lines
	}
	writeJSON(w, http.StatusOK, out)
}

// apiDeploymentEvents returns a deployment's event log, newest first,
// optionally filtered by level= and capped by limit=.
func (s *Server) apiDeploymentEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	level := r.URL.Query().Get("level")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var events []types.DeploymentEvent
	var err error
	if level != "" {
		events, err = s.deps.Store.EventsByDeploymentAndLevel(id, level, limit)
	} else {
		events, err = s.deps.Store.EventsByDeployment(id, limit)
	}
	if err != nil {
		s.deps.Log.Error("failed to list events", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []types.DeploymentEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// apiRollbackDeployment demotes the current deployment to Deleted and
// promotes its newest Deleted predecessor back to Creating. The scheduler
// swaps the container sets on subsequent ticks.
func (s *Server) apiRollbackDeployment(w http.ResponseWriter, r *http.Request) {
	cur, err := s.deps.Store.GetDeployment(r.PathValue("id"))
	if err != nil {
		s.deps.Log.Error("failed to get deployment", "error", err)
		writeError(w, http.StatusInternalServerError, "rollback failed")
		return
	}
	if cur == nil {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}

	candidates, err := s.deps.Store.DeletedByNamespaceName(cur.Namespace, cur.Name)
	if err != nil {
		s.deps.Log.Error("failed to list rollback candidates", "id", cur.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "rollback failed")
		return
	}
	var prev *types.Deployment
	for i := range candidates {
		if candidates[i].ID != cur.ID {
			prev = &candidates[i]
			break
		}
	}
	if prev == nil {
		writeError(w, http.StatusBadRequest, "no previous deployment to roll back to")
		return
	}

	now := time.Now().UTC()
	prev.Status = types.StatusCreating
	prev.UpdatedAt = now
	if err := s.deps.Store.UpdateDeployment(prev); err != nil {
		s.deps.Log.Error("failed to promote deployment", "id", prev.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "rollback failed")
		return
	}

	cur.Status = types.StatusDeleted
	cur.UpdatedAt = now
	if err := s.deps.Store.UpdateDeployment(cur); err != nil {
		s.deps.Log.Error("failed to demote deployment", "id", cur.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "rollback failed")
		return
	}
	s.recordEvent(prev, types.LevelInfo, types.ReasonDeploymentRollback,
		"deployment "+prev.Namespace+"/"+prev.Name+" rolled back from "+cur.ID)

	writeJSON(w, http.StatusOK, map[string]string{"previous_deployment_id": prev.ID})
}

// apiDeploymentHealthChecks lists a deployment's health check results, or
// with latest=true the most recent result per check type.
func (s *Server) apiDeploymentHealthChecks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := s.deps.Store.GetDeployment(id)
	if err != nil {
		s.deps.Log.Error("failed to get deployment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list health checks")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}

	var results []types.HealthCheckResult
	if r.URL.Query().Get("latest") == "true" {
		results, err = s.deps.Store.LatestHealthByDeployment(id)
	} else {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, perr := strconv.Atoi(v); perr == nil && n > 0 {
				limit = n
			}
		}
		results, err = s.deps.Store.HealthResultsByDeployment(id, limit)
	}
	if err != nil {
		s.deps.Log.Error("failed to list health results", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list health checks")
		return
	}
	if results == nil {
		results = []types.HealthCheckResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// recordEvent persists an API-originated event and publishes it to live
// subscribers. Persistence failures are logged, not surfaced; the triggering
// write already succeeded.
func (s *Server) recordEvent(d *types.Deployment, level, reason, message string) {
	ev := types.DeploymentEvent{
		DeploymentID: d.ID,
		Timestamp:    time.Now().UTC(),
		Level:        level,
		Message:      message,
		Component:    types.ComponentAPI,
		Reason:       reason,
	}
	if err := s.deps.Store.CreateEvent(&ev); err != nil {
		s.deps.Log.Error("failed to persist event", "deployment", d.ID, "reason", reason, "error", err)
		return
	}
	if s.deps.EventBus != nil {
		s.deps.EventBus.Publish(ev)
	}
}
