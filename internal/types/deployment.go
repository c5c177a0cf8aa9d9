package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxRestartCount is the restart budget for worker deployments. Reaching it
// moves the deployment to CrashLoopBackOff and halts reconciliation.
const MaxRestartCount = 5

// Deployment statuses. Stored in canonical form; inbound filters are matched
// case-insensitively via CanonicalStatus.
const (
	StatusPending              = "Pending"
	StatusCreating             = "Creating"
	StatusRunning              = "Running"
	StatusCompleted            = "Completed"
	StatusFailed               = "Failed"
	StatusDeleted              = "Deleted"
	StatusCrashLoopBackOff     = "CrashLoopBackOff"
	StatusImagePullBackOff     = "ImagePullBackOff"
	StatusCreateContainerError = "CreateContainerError"
	StatusNetworkError         = "NetworkError"
	StatusConfigError          = "ConfigError"
	StatusFileSystemError      = "FileSystemError"
	StatusError                = "Error"
)

// Deployment kinds.
const (
	KindWorker = "worker" // long-running, replica count enforced
	KindJob    = "job"    // run once, terminal on exit
)

// RuntimeDocker is the only supported runtime tag.
const RuntimeDocker = "docker"

// Image pull policies.
const (
	PullAlways       = "Always"
	PullIfNotPresent = "IfNotPresent"
	PullNever        = "Never"
)

// Deployment is a declared workload plus its observed status. The yaml tags
// cover the declarative subset accepted in apply manifests; observed fields
// are server-managed and excluded.
type Deployment struct {
	ID           string            `json:"id" yaml:"-"`
	Namespace    string            `json:"namespace" yaml:"namespace"`
	Name         string            `json:"name" yaml:"-"` // manifest map key
	Runtime      string            `json:"runtime" yaml:"runtime"`
	Kind         string            `json:"kind" yaml:"kind"`
	Image        string            `json:"image" yaml:"image"`
	Config       DeploymentConfig  `json:"config" yaml:"config"`
	Replicas     uint              `json:"replicas" yaml:"replicas"`
	Command      []string          `json:"command,omitempty" yaml:"command"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels"`
	Secrets      map[string]string `json:"secrets,omitempty" yaml:"secrets"` // emitted as container env vars
	Volumes      []Volume          `json:"volumes,omitempty" yaml:"volumes"`
	HealthChecks []HealthCheck     `json:"health_checks,omitempty" yaml:"health_checks"`
	Resources    *Resources        `json:"resources,omitempty" yaml:"resources"`
	Status       string            `json:"status" yaml:"-"`
	RestartCount uint              `json:"restart_count" yaml:"-"`
	CreatedAt    time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time         `json:"updated_at" yaml:"-"`
	LastEventAt  *time.Time        `json:"last_event_at,omitempty" yaml:"-"`

	// Instances is the observed container id set, repopulated from the
	// runtime on every reconcile. Never authoritative.
	Instances []string `json:"instances" yaml:"-"`

	// PendingEvents accumulates events emitted by the runtime driver during
	// apply; the scheduler drains them into the event log.
	PendingEvents []DeploymentEvent `json:"-" yaml:"-"`
}

// DeploymentConfig carries runtime options attached to a deployment.
type DeploymentConfig struct {
	ImagePullPolicy string        `json:"image_pull_policy,omitempty" yaml:"image_pull_policy"`
	Registry        *RegistryAuth `json:"registry,omitempty" yaml:"registry"`
	User            *UserSpec     `json:"user,omitempty" yaml:"user"`
}

// RegistryAuth holds credentials for pulling from a private registry.
type RegistryAuth struct {
	Server   string `json:"server,omitempty" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password"`
}

// UserSpec selects the unix user the container runs as.
type UserSpec struct {
	ID         *int64 `json:"id,omitempty" yaml:"id"`
	Group      *int64 `json:"group,omitempty" yaml:"group"`
	Privileged bool   `json:"privileged,omitempty" yaml:"privileged"`
}

// UnixUser renders the docker user string: "uid:gid" when both are set,
// "uid" when only the id is set, empty otherwise.
func (u *UserSpec) UnixUser() string {
	if u == nil || u.ID == nil {
		return ""
	}
	if u.Group != nil {
		return fmt.Sprintf("%d:%d", *u.ID, *u.Group)
	}
	return fmt.Sprintf("%d", *u.ID)
}

// Resources are optional container resource limits.
type Resources struct {
	CPULimit          float64 `json:"cpu_limit,omitempty" yaml:"cpu_limit"` // fractional cores
	MemoryLimit       string  `json:"memory_limit,omitempty" yaml:"memory_limit"`
	MemoryReservation string  `json:"memory_reservation,omitempty" yaml:"memory_reservation"`
	CPUShares         int64   `json:"cpu_shares,omitempty" yaml:"cpu_shares"`
}

// Instance pairs a container id with its runtime-assigned name.
type Instance struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImageParts splits the image reference on the first ":"; the tag defaults
// to "latest" when absent.
func (d *Deployment) ImageParts() (name, tag string) {
	name, tag, ok := strings.Cut(d.Image, ":")
	if !ok || tag == "" {
		tag = "latest"
	}
	return name, tag
}

// PullPolicy returns the effective image pull policy (default Always).
func (d *Deployment) PullPolicy() string {
	if d.Config.ImagePullPolicy == "" {
		return PullAlways
	}
	return d.Config.ImagePullPolicy
}

// Normalize fills in the documented defaults on a freshly submitted
// deployment: kind worker, one replica, pull policy Always, volume and
// health check field defaults.
func (d *Deployment) Normalize() {
	if d.Kind == "" {
		d.Kind = KindWorker
	}
	if d.Replicas == 0 {
		d.Replicas = 1
	}
	if d.Config.ImagePullPolicy == "" {
		d.Config.ImagePullPolicy = PullAlways
	}
	for i := range d.Volumes {
		d.Volumes[i].normalize()
	}
	for i := range d.HealthChecks {
		d.HealthChecks[i].normalize()
	}
}

// Validate checks a submitted deployment. It returns the first violated
// rule as a flat message suitable for an HTTP 400 body.
func (d *Deployment) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if d.Image == "" {
		return fmt.Errorf("image is required")
	}
	if d.Runtime != RuntimeDocker {
		return fmt.Errorf("unsupported runtime %q", d.Runtime)
	}
	if d.Kind != KindWorker && d.Kind != KindJob {
		return fmt.Errorf("unsupported kind %q", d.Kind)
	}
	switch d.Config.ImagePullPolicy {
	case "", PullAlways, PullIfNotPresent, PullNever:
	default:
		return fmt.Errorf("unsupported image pull policy %q", d.Config.ImagePullPolicy)
	}
	for _, v := range d.Volumes {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, hc := range d.HealthChecks {
		if err := hc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Event appends a pending event stamped with the docker component. The
// scheduler drains pending events into the event log after apply.
func (d *Deployment) Event(level, reason, message string) {
	d.PendingEvents = append(d.PendingEvents, DeploymentEvent{
		DeploymentID: d.ID,
		Timestamp:    time.Now().UTC(),
		Level:        level,
		Message:      message,
		Component:    ComponentDocker,
		Reason:       reason,
	})
}

// canonicalStatuses indexes every status by its lower-cased form.
var canonicalStatuses = map[string]string{}

func init() {
	for _, s := range []string{
		StatusPending, StatusCreating, StatusRunning, StatusCompleted,
		StatusFailed, StatusDeleted, StatusCrashLoopBackOff,
		StatusImagePullBackOff, StatusCreateContainerError,
		StatusNetworkError, StatusConfigError, StatusFileSystemError,
		StatusError,
	} {
		canonicalStatuses[strings.ToLower(s)] = s
	}
}

// CanonicalStatus maps a status string of any casing to its canonical form.
// The second return is false for unknown statuses.
func CanonicalStatus(s string) (string, bool) {
	c, ok := canonicalStatuses[strings.ToLower(s)]
	return c, ok
}
