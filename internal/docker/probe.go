package docker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/kemeter/ring/internal/types"
)

// httpProbeTimeout caps the HTTP probe client independently of the probe's
// own timeout.
const httpProbeTimeout = 5 * time.Second

// ExecuteHealthCheck runs one probe against one instance. The caller bounds
// ctx with the probe timeout; an expired context is reported as a timeout.
func (dr *Driver) ExecuteHealthCheck(ctx context.Context, instanceID string, check types.HealthCheck) (string, string) {
	switch check.Type {
	case types.CheckTCP:
		return dr.probeTCP(ctx, instanceID, check.Port)
	case types.CheckHTTP:
		return dr.probeHTTP(ctx, instanceID, check.URL)
	case types.CheckCommand:
		return dr.probeCommand(ctx, instanceID, check.Command)
	}
	return types.HealthFailed, fmt.Sprintf("unsupported health check type %q", check.Type)
}

// instanceIP resolves a container's primary IP, preferring the default
// bridge network over any other attached network.
func (dr *Driver) instanceIP(ctx context.Context, instanceID string) (string, error) {
	info, err := dr.api.InspectContainer(ctx, instanceID)
	if err != nil {
		return "", fmt.Errorf("inspect %s: %w", instanceID, err)
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no network settings", instanceID)
	}
	if bridge, ok := info.NetworkSettings.Networks["bridge"]; ok && bridge.IPAddress != "" {
		return bridge.IPAddress, nil
	}
	for _, ep := range info.NetworkSettings.Networks {
		if ep != nil && ep.IPAddress != "" {
			return ep.IPAddress, nil
		}
	}
	return "", fmt.Errorf("container %s has no IP address", instanceID)
}

func (dr *Driver) probeTCP(ctx context.Context, instanceID string, port int) (string, string) {
	ip, err := dr.instanceIP(ctx, instanceID)
	if err != nil {
		return types.HealthFailed, err.Error()
	}
	addr := net.JoinHostPort(ip, strconv.Itoa(port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return types.HealthTimeout, fmt.Sprintf("tcp dial %s timed out", addr)
		}
		return types.HealthFailed, fmt.Sprintf("tcp dial %s: %v", addr, err)
	}
	conn.Close()
	return types.HealthSuccess, fmt.Sprintf("tcp connect to %s succeeded", addr)
}

func (dr *Driver) probeHTTP(ctx context.Context, instanceID, rawURL string) (string, string) {
	ip, err := dr.instanceIP(ctx, instanceID)
	if err != nil {
		return types.HealthFailed, err.Error()
	}
	url := strings.ReplaceAll(rawURL, "localhost", ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.HealthFailed, fmt.Sprintf("http probe %s: %v", url, err)
	}
	client := &http.Client{Timeout: httpProbeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return types.HealthTimeout, fmt.Sprintf("http probe %s timed out", url)
		}
		return types.HealthFailed, fmt.Sprintf("http probe %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return types.HealthSuccess, fmt.Sprintf("http probe %s returned %d", url, resp.StatusCode)
	}
	return types.HealthFailed, fmt.Sprintf("http probe %s returned %d", url, resp.StatusCode)
}

func (dr *Driver) probeCommand(ctx context.Context, instanceID, command string) (string, string) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return types.HealthFailed, fmt.Sprintf("parse command %q: %v", command, err)
	}
	if len(args) == 0 {
		return types.HealthFailed, "empty health check command"
	}
	if _, _, err := dr.api.ExecContainer(ctx, instanceID, args); err != nil {
		if ctx.Err() != nil {
			return types.HealthTimeout, fmt.Sprintf("command %q timed out", command)
		}
		return types.HealthFailed, fmt.Sprintf("command %q: %v", command, err)
	}
	return types.HealthSuccess, fmt.Sprintf("command %q completed", command)
}
