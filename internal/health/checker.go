// Package health runs deployment probes and folds consecutive failures into
// proposed actions. The checker never writes to the store; the scheduler
// persists results and applies proposals.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kemeter/ring/internal/clock"
	"github.com/kemeter/ring/internal/logging"
	"github.com/kemeter/ring/internal/metrics"
	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// Outcome is what one checker pass proposes back to the scheduler.
type Outcome struct {
	Results           []types.HealthCheckResult
	Events            []types.DeploymentEvent
	ProposedStatus    string // empty when no transition is proposed
	InstancesToRemove []string
}

// Checker executes every declared probe against every instance of a
// deployment. Consecutive failures are tracked per (deployment, instance,
// probe index) in a process-local counter map shared across ticks.
type Checker struct {
	runtime runtime.Runtime
	clock   clock.Clock
	log     *logging.Logger

	mu       sync.Mutex
	failures map[string]int
}

// New creates a Checker bound to a runtime.
func New(rt runtime.Runtime, clk clock.Clock, log *logging.Logger) *Checker {
	return &Checker{
		runtime:  rt,
		clock:    clk,
		log:      log,
		failures: make(map[string]int),
	}
}

// Run probes the deployment's instances and returns the aggregated outcome.
// Deployments that are not Running, or declare no probes, yield an empty
// Outcome.
func (c *Checker) Run(ctx context.Context, d *types.Deployment) Outcome {
	var out Outcome
	if d.Status != types.StatusRunning || len(d.HealthChecks) == 0 {
		return out
	}

	for _, instanceID := range d.Instances {
		for idx, probe := range d.HealthChecks {
			res := c.runProbe(ctx, d, instanceID, probe)
			out.Results = append(out.Results, res)
			metrics.HealthChecksTotal.WithLabelValues(res.Status).Inc()

			key := counterKey(d.ID, instanceID, idx)
			if res.Status == types.HealthSuccess {
				c.reset(key)
				continue
			}
			if c.bump(key) >= probe.Threshold {
				c.reset(key)
				c.actOnFailure(d, instanceID, probe, res, &out)
			}
		}
	}
	return out
}

// Forget drops all failure counters for a deployment. Called when the
// deployment is removed from the store.
func (c *Checker) Forget(deploymentID string) {
	prefix := deploymentID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.failures {
		if strings.HasPrefix(key, prefix) {
			delete(c.failures, key)
		}
	}
}

// runProbe executes one probe against one instance. A timeout that fails
// to parse yields a Failed result without running the probe; that failure
// is deterministic, so it counts toward the threshold like any other.
func (c *Checker) runProbe(ctx context.Context, d *types.Deployment, instanceID string, probe types.HealthCheck) types.HealthCheckResult {
	started := c.clock.Now().UTC()
	res := types.HealthCheckResult{
		ID:           uuid.NewString(),
		DeploymentID: d.ID,
		CheckType:    probe.Type,
		CreatedAt:    started,
		StartedAt:    started,
	}

	timeout, err := types.ParseProbeDuration(probe.Timeout)
	if err != nil {
		res.Status = types.HealthFailed
		res.Message = err.Error()
		res.FinishedAt = c.clock.Now().UTC()
		return res
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res.Status, res.Message = c.runtime.ExecuteHealthCheck(probeCtx, instanceID, probe)
	res.FinishedAt = c.clock.Now().UTC()

	c.log.Debug("health probe executed",
		"deployment_id", d.ID,
		"instance_id", instanceID,
		"check_type", probe.Type,
		"status", res.Status,
	)
	return res
}

// actOnFailure records the probe's failure action on the outcome once its
// threshold trips.
func (c *Checker) actOnFailure(d *types.Deployment, instanceID string, probe types.HealthCheck, res types.HealthCheckResult, out *Outcome) {
	switch probe.OnFailure {
	case types.OnFailureStop:
		out.ProposedStatus = types.StatusDeleted
		out.Events = append(out.Events, c.event(d, types.LevelWarning, types.ReasonHealthCheckStop,
			fmt.Sprintf("%s health check failed %d times, stopping deployment %s", probe.Type, probe.Threshold, d.Name)))
	case types.OnFailureAlert:
		out.Events = append(out.Events, c.event(d, types.LevelError, types.ReasonHealthCheckAlert,
			fmt.Sprintf("%s health check failed %d times on instance %s: %s", probe.Type, probe.Threshold, shortID(instanceID), res.Message)))
	default: // restart
		out.InstancesToRemove = append(out.InstancesToRemove, instanceID)
		out.Events = append(out.Events, c.event(d, types.LevelWarning, types.ReasonHealthCheckInstanceRestart,
			fmt.Sprintf("%s health check failed %d times, restarting instance %s", probe.Type, probe.Threshold, shortID(instanceID))))
	}
}

func (c *Checker) event(d *types.Deployment, level, reason, message string) types.DeploymentEvent {
	return types.DeploymentEvent{
		DeploymentID: d.ID,
		Timestamp:    c.clock.Now().UTC(),
		Level:        level,
		Message:      message,
		Component:    types.ComponentHealthChecker,
		Reason:       reason,
	}
}

func (c *Checker) bump(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[key]++
	return c.failures[key]
}

func (c *Checker) reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, key)
}

func counterKey(deploymentID, instanceID string, probeIndex int) string {
	return fmt.Sprintf("%s:%s:%d", deploymentID, instanceID, probeIndex)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
