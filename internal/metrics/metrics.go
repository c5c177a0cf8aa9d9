package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeploymentsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ring_deployments",
		Help: "Deployments currently tracked by the scheduler, by status.",
	}, []string{"status"})
	ReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ring_reconciles_total",
		Help: "Total number of per-deployment reconcile passes by outcome.",
	}, []string{"outcome"})
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ring_reconcile_duration_seconds",
		Help:    "Duration of a full scheduler tick.",
		Buckets: prometheus.DefBuckets,
	})
	InstancesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ring_instances_created_total",
		Help: "Total number of containers created by the runtime driver.",
	})
	InstancesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ring_instances_removed_total",
		Help: "Total number of containers removed by the runtime driver.",
	})
	HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ring_health_checks_total",
		Help: "Total number of health probes executed by status.",
	}, []string{"status"})
	EventsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ring_events_written_total",
		Help: "Total number of deployment events persisted by level.",
	}, []string{"level"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ring_http_requests_total",
		Help: "Total number of API requests by method and status.",
	}, []string{"method", "status"})
	DeletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ring_deployment_deletions_total",
		Help: "Total number of deployments fully removed from the store.",
	})
)
