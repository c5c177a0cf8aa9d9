package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Health check probe types.
const (
	CheckTCP     = "tcp"
	CheckHTTP    = "http"
	CheckCommand = "command"
)

// Failure actions taken when a probe's consecutive-failure threshold trips.
const (
	OnFailureRestart = "restart"
	OnFailureStop    = "stop"
	OnFailureAlert   = "alert"
)

// DefaultThreshold is the consecutive-failure threshold applied when a
// probe does not declare one.
const DefaultThreshold = 3

// Health check result statuses.
const (
	HealthSuccess = "success"
	HealthFailed  = "failed"
	HealthTimeout = "timeout"
)

// HealthCheck declares one probe against every instance of a deployment.
// The Type tag selects which of Port, URL, Command applies.
type HealthCheck struct {
	Type      string `json:"type" yaml:"type"`
	Port      int    `json:"port,omitempty" yaml:"port"`
	URL       string `json:"url,omitempty" yaml:"url"`
	Command   string `json:"command,omitempty" yaml:"command"`
	Interval  string `json:"interval,omitempty" yaml:"interval"`
	Timeout   string `json:"timeout,omitempty" yaml:"timeout"`
	Threshold int    `json:"threshold,omitempty" yaml:"threshold"`
	OnFailure string `json:"on_failure,omitempty" yaml:"on_failure"`
}

func (hc *HealthCheck) normalize() {
	if hc.Threshold <= 0 {
		hc.Threshold = DefaultThreshold
	}
	if hc.OnFailure == "" {
		hc.OnFailure = OnFailureRestart
	}
}

// Validate checks the probe declaration.
func (hc *HealthCheck) Validate() error {
	switch hc.Type {
	case CheckTCP:
		if hc.Port <= 0 || hc.Port > 65535 {
			return fmt.Errorf("port is required for tcp health checks")
		}
	case CheckHTTP:
		if hc.URL == "" {
			return fmt.Errorf("url is required for http health checks")
		}
	case CheckCommand:
		if hc.Command == "" {
			return fmt.Errorf("command is required for command health checks")
		}
	default:
		return fmt.Errorf("unsupported health check type %q", hc.Type)
	}
	switch hc.OnFailure {
	case "", OnFailureRestart, OnFailureStop, OnFailureAlert:
	default:
		return fmt.Errorf("unsupported on_failure action %q", hc.OnFailure)
	}
	return nil
}

// ParseProbeDuration parses the probe duration grammar: an integer followed
// by "s" or "ms". Anything else is an error.
func ParseProbeDuration(s string) (time.Duration, error) {
	var unit time.Duration
	var digits string
	switch {
	case strings.HasSuffix(s, "ms"):
		unit = time.Millisecond
		digits = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		unit = time.Second
		digits = strings.TrimSuffix(s, "s")
	default:
		return 0, fmt.Errorf("invalid duration %q: expected <integer>s or <integer>ms", s)
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected <integer>s or <integer>ms", s)
	}
	return time.Duration(n) * unit, nil
}

// HealthCheckResult records a single probe execution against an instance.
type HealthCheckResult struct {
	ID           string    `json:"id"`
	DeploymentID string    `json:"deployment_id"`
	CheckType    string    `json:"check_type"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
