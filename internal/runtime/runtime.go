// Package runtime defines the container runtime abstraction consumed by the
// scheduler and the health checker, together with the error taxonomy that
// reconciliation translates into deployment statuses and event reasons.
package runtime

import (
	"context"

	"github.com/kemeter/ring/internal/types"
)

// Instance status filters accepted by ListInstances.
const (
	FilterAll    = "all"
	FilterActive = "active" // running, created or restarting
)

// Runtime drives a container engine toward a deployment's declared state.
// Apply mutates the deployment in place (instances, status, restart count)
// and accumulates pending events on it; it returns an error only when
// reconciliation could not proceed at all, in which case the caller skips
// the deployment for this tick.
type Runtime interface {
	Apply(ctx context.Context, d *types.Deployment, configs map[string]types.Config) error
	ListInstances(ctx context.Context, deploymentID, statusFilter string) ([]string, error)
	ListInstancesWithNames(ctx context.Context, deploymentID, statusFilter string) ([]types.Instance, error)
	RemoveInstance(ctx context.Context, containerID string) error
	Logs(ctx context.Context, containerID, tail, since string) ([]string, error)
	StreamLogs(ctx context.Context, containerID, tail, since string) (<-chan string, error)
	ExecuteHealthCheck(ctx context.Context, instanceID string, check types.HealthCheck) (status, message string)
}
