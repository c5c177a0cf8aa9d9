package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"

	"github.com/kemeter/ring/internal/logging"
	"github.com/kemeter/ring/internal/metrics"
	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// activeStates are the Docker container states counted as live instances
// during reconciliation.
var activeStates = []string{"running", "created", "restarting"}

// stopTimeoutSeconds is the grace period given to a container before the
// daemon kills it on removal.
const stopTimeoutSeconds = 10

// configMountRoot is where config volume contents are materialized before
// being bind-mounted into containers.
const configMountRoot = "/tmp/ring_configs"

// Driver reconciles deployments against a Docker daemon.
type Driver struct {
	api        API
	log        *logging.Logger
	configRoot string
}

// Verify Driver implements the runtime abstraction at compile time.
var _ runtime.Runtime = (*Driver)(nil)

// NewDriver wraps a Docker API client in the runtime driver.
func NewDriver(api API, log *logging.Logger) *Driver {
	return &Driver{api: api, log: log.Component("docker"), configRoot: configMountRoot}
}

// Apply reconciles one deployment toward its declared state. It mutates the
// deployment in place (instances, status, restart count) and accumulates
// pending events on it. Failures that map onto a deployment status are
// absorbed into the status; the returned error is reserved for failures
// that prevent reconciliation entirely.
func (dr *Driver) Apply(ctx context.Context, d *types.Deployment, configs map[string]types.Config) error {
	instances, err := dr.ListInstances(ctx, d.ID, runtime.FilterActive)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	d.Instances = instances

	if d.Kind == types.KindJob {
		return dr.applyJob(ctx, d, configs)
	}
	return dr.applyWorker(ctx, d, configs)
}

// applyWorker converges a long-running deployment one step toward its
// replica count. At most one container is created or removed per call.
func (dr *Driver) applyWorker(ctx context.Context, d *types.Deployment, configs map[string]types.Config) error {
	if d.RestartCount >= types.MaxRestartCount && d.Status != types.StatusDeleted {
		d.Status = types.StatusCrashLoopBackOff
		return nil
	}
	if d.Status == types.StatusCrashLoopBackOff {
		return nil
	}
	if d.Status == types.StatusDeleted {
		return dr.removeAll(ctx, d)
	}

	current, target := len(d.Instances), int(d.Replicas)
	switch {
	case current < target:
		containerID, err := dr.createInstance(ctx, d, configs)
		if err != nil {
			dr.fail(d, err)
			d.RestartCount++
			return nil
		}
		d.Instances = append(d.Instances, containerID)
		d.Event(types.LevelInfo, types.ReasonScaleUp,
			fmt.Sprintf("Scaled up %s/%s to %d/%d instance(s)", d.Namespace, d.Name, len(d.Instances), target))
		// A successful create also clears any error status from earlier
		// failed attempts.
		d.Status = types.StatusRunning
	case current > target:
		victim := d.Instances[0]
		if err := dr.RemoveInstance(ctx, victim); err != nil {
			return fmt.Errorf("remove instance %s: %w", victim, err)
		}
		d.Instances = d.Instances[1:]
		d.Event(types.LevelInfo, types.ReasonScaleDown,
			fmt.Sprintf("Scaled down %s/%s to %d/%d instance(s)", d.Namespace, d.Name, len(d.Instances), target))
	}
	return nil
}

// applyJob drives a run-once deployment: its status follows the first
// container's observed state, and the container is created exactly once.
func (dr *Driver) applyJob(ctx context.Context, d *types.Deployment, configs map[string]types.Config) error {
	if d.Status == types.StatusDeleted {
		return dr.removeAll(ctx, d)
	}

	all, err := dr.ListInstances(ctx, d.ID, runtime.FilterAll)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	if len(all) > 0 {
		info, err := dr.api.InspectContainer(ctx, all[0])
		if err != nil {
			return fmt.Errorf("inspect instance %s: %w", all[0], err)
		}
		state := containerState(info)
		switch {
		case state != nil && state.Running:
			d.Status = types.StatusRunning
		case state != nil && state.ExitCode == 0:
			d.Status = types.StatusCompleted
		default:
			d.Status = types.StatusFailed
		}
		return nil
	}

	if d.Status == types.StatusPending || d.Status == types.StatusCreating {
		containerID, err := dr.createInstance(ctx, d, configs)
		if err != nil {
			// Jobs do not consume the restart budget.
			dr.fail(d, err)
			return nil
		}
		d.Instances = append(d.Instances, containerID)
		d.Status = types.StatusRunning
	}
	return nil
}

// removeAll tears down every instance of a deployment marked deleted and
// drops its materialized config files. It re-lists without the active
// filter: exited containers (finished jobs, crashed workers) must go too.
func (dr *Driver) removeAll(ctx context.Context, d *types.Deployment) error {
	all, err := dr.ListInstances(ctx, d.ID, runtime.FilterAll)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	d.Instances = all

	removed := 0
	for _, id := range d.Instances {
		if err := dr.RemoveInstance(ctx, id); err != nil {
			return fmt.Errorf("remove instance %s: %w", id, err)
		}
		removed++
	}
	d.Instances = nil
	d.Event(types.LevelInfo, types.ReasonContainerDeletion,
		fmt.Sprintf("Deleted %d container(s) for %s marked as deleted", removed, d.Kind))
	dr.cleanupConfigDir(d.ID)
	return nil
}

// fail maps a creation error onto the deployment status and records the
// matching error event.
func (dr *Driver) fail(d *types.Deployment, err error) {
	kind := runtime.Classify(err)
	d.Status = runtime.StatusFor(kind)
	d.Event(types.LevelError, runtime.ReasonFor(kind), err.Error())
	dr.log.Error("instance creation failed",
		"deployment", d.ID, "namespace", d.Namespace, "name", d.Name, "error", err)
}

// ListInstances returns the container ids labeled with the deployment id.
// statusFilter selects either every container or only the active set.
func (dr *Driver) ListInstances(ctx context.Context, deploymentID, statusFilter string) ([]string, error) {
	summaries, err := dr.list(ctx, deploymentID, statusFilter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// ListInstancesWithNames returns container ids paired with their names.
func (dr *Driver) ListInstancesWithNames(ctx context.Context, deploymentID, statusFilter string) ([]types.Instance, error) {
	summaries, err := dr.list(ctx, deploymentID, statusFilter)
	if err != nil {
		return nil, err
	}
	out := make([]types.Instance, 0, len(summaries))
	for _, s := range summaries {
		var name string
		if len(s.Names) > 0 {
			name = strings.TrimPrefix(s.Names[0], "/")
		}
		out = append(out, types.Instance{ID: s.ID, Name: name})
	}
	return out, nil
}

func (dr *Driver) list(ctx context.Context, deploymentID, statusFilter string) ([]container.Summary, error) {
	var statuses []string
	switch statusFilter {
	case runtime.FilterAll:
	case runtime.FilterActive, "":
		statuses = activeStates
	default:
		// A concrete Docker state narrows the listing to just that state.
		statuses = []string{statusFilter}
	}
	return dr.api.ListContainers(ctx, deploymentSelector(deploymentID), statuses...)
}

// containerState unwraps the inspect payload's state, which is absent on
// some daemon error paths.
func containerState(info container.InspectResponse) *container.State {
	if info.ContainerJSONBase == nil {
		return nil
	}
	return info.State
}

// RemoveInstance stops a container and force-removes it. The stop is best
// effort; removal with force covers containers that refuse to stop.
func (dr *Driver) RemoveInstance(ctx context.Context, containerID string) error {
	if err := dr.api.StopContainer(ctx, containerID, stopTimeoutSeconds); err != nil {
		dr.log.Warn("stop before remove failed", "container", containerID, "error", err)
	}
	if err := dr.api.RemoveContainer(ctx, containerID); err != nil {
		return err
	}
	metrics.InstancesRemoved.Inc()
	return nil
}

// cleanupConfigDir drops the deployment's materialized config files.
func (dr *Driver) cleanupConfigDir(deploymentID string) {
	dir := filepath.Join(dr.configRoot, deploymentID)
	if err := os.RemoveAll(dir); err != nil {
		dr.log.Warn("cleanup config mounts failed", "deployment", deploymentID, "error", err)
	}
}
