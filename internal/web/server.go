// Package web serves ring's HTTP API: deployment CRUD and rollback, config
// and user management, event and health-check reads, log aggregation, live
// event streaming and Prometheus metrics. Handlers translate requests into
// store and runtime calls; all reconciliation stays in the scheduler.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kemeter/ring/internal/auth"
	"github.com/kemeter/ring/internal/events"
	"github.com/kemeter/ring/internal/logging"
	"github.com/kemeter/ring/internal/metrics"
	"github.com/kemeter/ring/internal/types"
)

// Store is the persistence surface the API depends on.
type Store interface {
	CreateDeployment(d *types.Deployment) error
	GetDeployment(id string) (*types.Deployment, error)
	UpdateDeployment(d *types.Deployment) error
	ListDeployments(filters map[string][]string) ([]types.Deployment, error)
	ActiveByNamespaceName(namespace, name string) ([]types.Deployment, error)
	DeletedByNamespaceName(namespace, name string) ([]types.Deployment, error)

	CreateEvent(ev *types.DeploymentEvent) error
	EventsByDeployment(deploymentID string, limit int) ([]types.DeploymentEvent, error)
	EventsByDeploymentAndLevel(deploymentID, level string, limit int) ([]types.DeploymentEvent, error)

	HealthResultsByDeployment(deploymentID string, limit int) ([]types.HealthCheckResult, error)
	LatestHealthByDeployment(deploymentID string) ([]types.HealthCheckResult, error)

	CreateConfig(c *types.Config) error
	GetConfig(id string) (*types.Config, error)
	UpdateConfig(c *types.Config) error
	DeleteConfig(id string) error
	ListConfigs(filters map[string][]string) ([]types.Config, error)

	CreateUser(u *types.User) error
	GetUser(id string) (*types.User, error)
	GetUserByUsername(username string) (*types.User, error)
	GetUserByToken(tokenHash string) (*types.User, error)
	UpdateUser(u *types.User) error
	DeleteUser(id string) error
	ListUsers() ([]types.User, error)
}

// InstanceReader is the runtime surface the API depends on: live instance
// listing and log retrieval. The deployment GET refreshes its instance set
// through it, and the logs endpoint aggregates per-instance output.
type InstanceReader interface {
	ListInstances(ctx context.Context, deploymentID, statusFilter string) ([]string, error)
	Logs(ctx context.Context, containerID, tail, since string) ([]string, error)
}

// NodeReader reports a snapshot of the host the runtime drives.
type NodeReader interface {
	NodeInfo(ctx context.Context) (NodeView, error)
}

// NodeView is the wire shape of the /node/get snapshot.
type NodeView struct {
	Name              string `json:"name"`
	OperatingSystem   string `json:"operating_system"`
	OSType            string `json:"os_type"`
	Architecture      string `json:"architecture"`
	CPUs              int    `json:"cpus"`
	MemoryBytes       int64  `json:"memory_bytes"`
	ServerVersion     string `json:"server_version"`
	Containers        int    `json:"containers"`
	ContainersRunning int    `json:"containers_running"`
	Images            int    `json:"images"`
}

// Dependencies defines what the API server needs from the rest of the
// application.
type Dependencies struct {
	Store    Store
	Runtime  InstanceReader
	Node     NodeReader
	EventBus *events.Bus
	Pepper   string // site-wide password pepper from config.toml
	Log      *logging.Logger
}

// Server is the ring API HTTP server.
type Server struct {
	deps   Dependencies
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a Server with all routes registered.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	authMw := auth.Middleware(s.deps.Store)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMw(h)
	}

	// Public routes.
	s.mux.HandleFunc("POST /login", s.apiLogin)
	s.mux.HandleFunc("GET /healthz", s.apiHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Everything else requires a bearer token.
	s.mux.Handle("GET /node/get", authed(s.apiNodeGet))

	s.mux.Handle("POST /deployments", authed(s.apiCreateDeployment))
	s.mux.Handle("GET /deployments", authed(s.apiListDeployments))
	s.mux.Handle("GET /deployments/{id}", authed(s.apiGetDeployment))
	s.mux.Handle("DELETE /deployments/{id}", authed(s.apiDeleteDeployment))
	s.mux.Handle("GET /deployments/{id}/logs", authed(s.apiDeploymentLogs))
	s.mux.Handle("GET /deployments/{id}/events", authed(s.apiDeploymentEvents))
	s.mux.Handle("POST /deployments/{id}/rollback", authed(s.apiRollbackDeployment))
	s.mux.Handle("GET /deployments/{id}/health_checks", authed(s.apiDeploymentHealthChecks))

	s.mux.Handle("POST /configs", authed(s.apiCreateConfig))
	s.mux.Handle("GET /configs", authed(s.apiListConfigs))
	s.mux.Handle("GET /configs/{id}", authed(s.apiGetConfig))
	s.mux.Handle("PUT /configs/{id}", authed(s.apiUpdateConfig))
	s.mux.Handle("DELETE /configs/{id}", authed(s.apiDeleteConfig))

	s.mux.Handle("POST /users", authed(s.apiCreateUser))
	s.mux.Handle("GET /users", authed(s.apiListUsers))
	s.mux.Handle("GET /users/me", authed(s.apiMe))
	s.mux.Handle("PUT /users/{id}", authed(s.apiUpdateUser))
	s.mux.Handle("DELETE /users/{id}", authed(s.apiDeleteUser))

	s.mux.Handle("GET /events/stream", authed(s.apiEventStream))
}

// Handler exposes the instrumented route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      instrument(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections are long-lived
		IdleTimeout:  120 * time.Second,
	}
	s.deps.Log.Info("api listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// instrument counts every request by method and status code.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, http.StatusText(rec.status)).Inc()
	})
}

// statusRecorder captures the response status for request metrics. Flush is
// forwarded so SSE streaming keeps working through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// writeJSON encodes v as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
