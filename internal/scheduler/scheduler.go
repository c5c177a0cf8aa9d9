// Package scheduler runs the reconciliation loop: it loads live deployments
// from the store, drives the runtime toward their declared state, executes
// health checks, drains events, and retires Deleted deployments once their
// containers are gone. It is the single writer of deployment status during
// reconciliation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/kemeter/ring/internal/clock"
	"github.com/kemeter/ring/internal/config"
	"github.com/kemeter/ring/internal/events"
	"github.com/kemeter/ring/internal/health"
	"github.com/kemeter/ring/internal/logging"
	"github.com/kemeter/ring/internal/metrics"
	"github.com/kemeter/ring/internal/notify"
	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// Store is the persistence surface the scheduler depends on.
type Store interface {
	ListDeployments(filters map[string][]string) ([]types.Deployment, error)
	UpdateDeployment(d *types.Deployment) error
	ConfigsByNamespace(namespace string) ([]types.Config, error)
	CreateEvent(ev *types.DeploymentEvent) error
	StoreHealthResult(r *types.HealthCheckResult) error
	DeleteEventsByDeployment(deploymentID string) error
	DeleteHealthResultsByDeployment(deploymentID string) error
	DeleteDeployments(ids []string) error
	CleanupOldHealthResults() (int, error)
}

// HealthChecker proposes actions from probe outcomes; the scheduler persists
// and applies them.
type HealthChecker interface {
	Run(ctx context.Context, d *types.Deployment) health.Outcome
	Forget(deploymentID string)
}

// Notifier receives error-level deployment events.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event) bool
}

// Scheduler reconciles deployments on a fixed interval.
type Scheduler struct {
	store    Store
	runtime  runtime.Runtime
	health   HealthChecker
	notifier Notifier
	bus      *events.Bus
	cfg      *config.Config
	log      *logging.Logger
	clock    clock.Clock
	cron     *cron.Cron
}

// New assembles a scheduler. The bus and notifier may be nil when the caller
// does not stream or notify.
func New(st Store, rt runtime.Runtime, hc HealthChecker, cfg *config.Config, log *logging.Logger, clk clock.Clock, bus *events.Bus, notifier Notifier) *Scheduler {
	return &Scheduler{
		store:    st,
		runtime:  rt,
		health:   hc,
		notifier: notifier,
		bus:      bus,
		cfg:      cfg,
		log:      log.Component("scheduler"),
		clock:    clk,
	}
}

// Run ticks immediately, then at every configured interval until ctx is
// cancelled. The health-results janitor runs on its own cron schedule for
// the same lifetime.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startJanitor()
	if s.cron != nil {
		defer s.cron.Stop()
	}

	s.log.Info("scheduler started", "interval", s.cfg.Interval(), "apply_timeout", s.cfg.ApplyTimeout)
	s.Tick(ctx)
	for {
		select {
		case <-s.clock.After(s.cfg.Interval()):
			s.Tick(ctx)
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) startJanitor() {
	schedule := s.cfg.Scheduler.CleanupSchedule
	if schedule == "" {
		schedule = "@every 300s"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, s.cleanupHealthResults); err != nil {
		s.log.Error("invalid cleanup schedule, janitor disabled", "schedule", schedule, "error", err)
		return
	}
	c.Start()
	s.cron = c
}

func (s *Scheduler) cleanupHealthResults() {
	removed, err := s.store.CleanupOldHealthResults()
	if err != nil {
		s.log.Error("health results cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("pruned old health check results", "removed", removed)
	}
}

// reconcilableStatuses is the tick's working set: deployments still
// converging, live, marked for removal, or parked in a retryable error
// state. A failed create must keep retrying until the restart budget
// trips, so the error statuses stay in. CrashLoopBackOff and the job
// terminal states are out until an API write reactivates them.
var reconcilableStatuses = []string{
	types.StatusCreating,
	types.StatusRunning,
	types.StatusDeleted,
	types.StatusImagePullBackOff,
	types.StatusCreateContainerError,
	types.StatusNetworkError,
	types.StatusConfigError,
	types.StatusFileSystemError,
	types.StatusError,
}

// Tick runs one full reconciliation pass over every live deployment.
func (s *Scheduler) Tick(ctx context.Context) {
	started := s.clock.Now()

	deployments, err := s.store.ListDeployments(map[string][]string{
		"status": reconcilableStatuses,
	})
	if err != nil {
		s.log.Error("failed to load deployments", "error", err)
		return
	}
	s.observeStatusCounts(deployments)

	var deletionQueue []string
	for i := range deployments {
		d := &deployments[i]
		if d.Runtime != types.RuntimeDocker {
			s.log.Warn("skipping deployment with unsupported runtime",
				"deployment_id", d.ID, "runtime", d.Runtime)
			continue
		}
		if err := s.reconcile(ctx, d, &deletionQueue); err != nil {
			metrics.ReconcilesTotal.WithLabelValues("error").Inc()
			s.log.Error("reconcile failed",
				"deployment_id", d.ID,
				"namespace", d.Namespace,
				"name", d.Name,
				"error", err)
		} else {
			metrics.ReconcilesTotal.WithLabelValues("success").Inc()
		}
	}

	s.deleteQueued(deletionQueue)
	metrics.ReconcileDuration.Observe(s.clock.Since(started).Seconds())
}

// reconcile drives one deployment through a tick: apply, event drain, state
// transitions, health checks, persist.
func (s *Scheduler) reconcile(ctx context.Context, d *types.Deployment, deletionQueue *[]string) error {
	configList, err := s.store.ConfigsByNamespace(d.Namespace)
	if err != nil {
		return fmt.Errorf("load configs for namespace %s: %w", d.Namespace, err)
	}
	configs := make(map[string]types.Config, len(configList))
	for _, c := range configList {
		configs[c.Name] = c
	}

	applyCtx, cancel := context.WithTimeout(ctx, s.cfg.ApplyTimeout)
	applyErr := s.runtime.Apply(applyCtx, d, configs)
	timedOut := errors.Is(applyCtx.Err(), context.DeadlineExceeded)
	cancel()

	s.drainPendingEvents(ctx, d)

	if ctx.Err() != nil {
		// Shutting down; leave the deployment for the next run.
		return nil
	}
	if timedOut {
		s.persistEvent(ctx, d, types.DeploymentEvent{
			Level:     types.LevelError,
			Component: types.ComponentScheduler,
			Reason:    types.ReasonApplyTimeout,
			Message:   fmt.Sprintf("apply for %s/%s did not finish within %s", d.Namespace, d.Name, s.cfg.ApplyTimeout),
		})
		return nil
	}
	if applyErr != nil {
		return fmt.Errorf("apply: %w", applyErr)
	}

	if d.Status == types.StatusDeleted && len(d.Instances) == 0 {
		*deletionQueue = append(*deletionQueue, d.ID)
		return nil
	}

	if d.Status == types.StatusCreating && len(d.Instances) > 0 {
		d.Status = types.StatusRunning
		s.persistEvent(ctx, d, types.DeploymentEvent{
			Level:     types.LevelInfo,
			Component: types.ComponentScheduler,
			Reason:    types.ReasonStateTransition,
			Message:   fmt.Sprintf("deployment %s/%s is running with %d instance(s)", d.Namespace, d.Name, len(d.Instances)),
		})
	}

	if d.Status == types.StatusRunning && len(d.HealthChecks) > 0 {
		s.runHealthChecks(ctx, d)
	}

	d.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.UpdateDeployment(d); err != nil {
		return fmt.Errorf("persist deployment: %w", err)
	}
	return nil
}

// runHealthChecks executes the deployment's probes and applies the proposed
// actions: results and events are persisted, unhealthy instances removed,
// status transitions taken over.
func (s *Scheduler) runHealthChecks(ctx context.Context, d *types.Deployment) {
	outcome := s.health.Run(ctx, d)

	for i := range outcome.Results {
		if err := s.store.StoreHealthResult(&outcome.Results[i]); err != nil {
			s.log.Error("failed to store health result", "deployment_id", d.ID, "error", err)
		}
	}
	for _, ev := range outcome.Events {
		s.persistEvent(ctx, d, ev)
	}
	if outcome.ProposedStatus != "" {
		d.Status = outcome.ProposedStatus
	}
	for _, instanceID := range outcome.InstancesToRemove {
		if err := s.runtime.RemoveInstance(ctx, instanceID); err != nil {
			s.log.Error("failed to remove unhealthy instance",
				"deployment_id", d.ID, "instance_id", instanceID, "error", err)
			continue
		}
		d.Instances = slices.DeleteFunc(d.Instances, func(id string) bool { return id == instanceID })
	}
}

// drainPendingEvents flushes events accumulated by the runtime during apply.
func (s *Scheduler) drainPendingEvents(ctx context.Context, d *types.Deployment) {
	for _, ev := range d.PendingEvents {
		s.persistEvent(ctx, d, ev)
	}
	d.PendingEvents = nil
}

// persistEvent writes one event, mirrors its timestamp onto the in-memory
// row (so the tick's final persist does not clobber the last_event_at stamp
// CreateEvent wrote), and fans it out to the bus and, for errors, the
// notifier chain.
func (s *Scheduler) persistEvent(ctx context.Context, d *types.Deployment, ev types.DeploymentEvent) {
	ev.DeploymentID = d.ID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.clock.Now().UTC()
	}
	if err := s.store.CreateEvent(&ev); err != nil {
		s.log.Error("failed to persist event",
			"deployment_id", d.ID, "reason", ev.Reason, "error", err)
		return
	}
	ts := ev.Timestamp
	d.LastEventAt = &ts
	metrics.EventsWritten.WithLabelValues(ev.Level).Inc()

	if s.bus != nil {
		s.bus.Publish(ev)
	}
	if s.notifier != nil && ev.Level == types.LevelError {
		s.notifier.Notify(ctx, notify.Event{
			DeploymentID: d.ID,
			Namespace:    d.Namespace,
			Name:         d.Name,
			Level:        ev.Level,
			Reason:       ev.Reason,
			Message:      ev.Message,
			Timestamp:    ev.Timestamp,
		})
	}
}

// deleteQueued retires deployments whose containers are gone: events first,
// then health rows, then the deployment rows in one batch.
func (s *Scheduler) deleteQueued(ids []string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := s.store.DeleteEventsByDeployment(id); err != nil {
			s.log.Error("failed to delete deployment events", "deployment_id", id, "error", err)
		}
		if err := s.store.DeleteHealthResultsByDeployment(id); err != nil {
			s.log.Error("failed to delete health results", "deployment_id", id, "error", err)
		}
		s.health.Forget(id)
	}
	if err := s.store.DeleteDeployments(ids); err != nil {
		s.log.Error("failed to delete deployments", "ids", strings.Join(ids, ","), "error", err)
		return
	}
	metrics.DeletionsTotal.Add(float64(len(ids)))
	s.log.Info("removed deleted deployments", "count", len(ids))
}

func (s *Scheduler) observeStatusCounts(deployments []types.Deployment) {
	counts := map[string]int{}
	for _, d := range deployments {
		counts[d.Status]++
	}
	for _, st := range reconcilableStatuses {
		metrics.DeploymentsByStatus.WithLabelValues(strings.ToLower(st)).Set(float64(counts[st]))
	}
}
