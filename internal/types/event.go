package types

import "time"

// Event levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Event components identify the emitter.
const (
	ComponentAPI           = "api"
	ComponentScheduler     = "scheduler"
	ComponentDocker        = "docker"
	ComponentHealthChecker = "health_checker"
)

// Stable machine-readable event reasons.
const (
	ReasonImagePullBackOff           = "ImagePullBackOff"
	ReasonInstanceCreationFailed     = "InstanceCreationFailed"
	ReasonNetworkCreationFailed      = "NetworkCreationFailed"
	ReasonConfigError                = "ConfigError"
	ReasonFileSystemError            = "FileSystemError"
	ReasonRuntimeError               = "RuntimeError"
	ReasonScaleUp                    = "ScaleUp"
	ReasonScaleDown                  = "ScaleDown"
	ReasonContainerDeletion          = "ContainerDeletion"
	ReasonStateTransition            = "StateTransition"
	ReasonApplyTimeout               = "ApplyTimeout"
	ReasonHealthCheckInstanceRestart = "HealthCheckInstanceRestart"
	ReasonHealthCheckStop            = "HealthCheckStop"
	ReasonHealthCheckAlert           = "HealthCheckAlert"
	ReasonDeploymentCreated          = "DeploymentCreated"
	ReasonDeploymentDeleted          = "DeploymentDeleted"
	ReasonDeploymentRollback         = "DeploymentRollback"
)

// DeploymentEvent is one structured entry in a deployment's event log.
type DeploymentEvent struct {
	ID           string    `json:"id"`
	DeploymentID string    `json:"deployment_id"`
	Timestamp    time.Time `json:"timestamp"`
	Level        string    `json:"level"`
	Message      string    `json:"message"`
	Component    string    `json:"component"`
	Reason       string    `json:"reason,omitempty"`
}
