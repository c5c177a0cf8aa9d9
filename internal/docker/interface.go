package docker

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
)

// API defines the subset of Docker daemon operations used by ring.
// Implemented by Client for production, and by fakes for testing.
type API interface {
	ListContainers(ctx context.Context, labelSelector string, statuses ...string) ([]container.Summary, error)
	InspectContainer(ctx context.Context, id string) (container.InspectResponse, error)
	CreateContainer(ctx context.Context, name string, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string, timeout int) error
	RemoveContainer(ctx context.Context, id string) error
	ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error)
	ExecContainer(ctx context.Context, id string, cmd []string) (int, string, error)
	ImagePresent(ctx context.Context, refStr string) (bool, error)
	PullImage(ctx context.Context, refStr, registryAuth string) error
	NetworkExists(ctx context.Context, name string) (bool, error)
	CreateNetwork(ctx context.Context, name string) error
	ConnectNetwork(ctx context.Context, name, containerID string, aliases []string) error
	Info(ctx context.Context) (system.Info, error)
	Ping(ctx context.Context) error
	Close() error
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)
