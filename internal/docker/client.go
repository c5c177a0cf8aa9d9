package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Client wraps the Docker Engine API client.
type Client struct {
	api *client.Client
}

// NewClient creates a Docker client for the given host. An empty host falls
// back to the environment (DOCKER_HOST, defaulting to the local socket).
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// ListContainers returns containers matching the label selector, such as
// "ring_deployment=<id>". Statuses narrow the result to the given container
// states; with none, every container is returned regardless of state.
func (c *Client) ListContainers(ctx context.Context, labelSelector string, statuses ...string) ([]container.Summary, error) {
	args := filters.NewArgs()
	if labelSelector != "" {
		args.Add("label", labelSelector)
	}
	for _, s := range statuses {
		args.Add("status", s)
	}
	return c.api.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
}

// InspectContainer returns full container details by ID.
func (c *Client) InspectContainer(ctx context.Context, id string) (container.InspectResponse, error) {
	return c.api.ContainerInspect(ctx, id)
}

// CreateContainer creates a new container and returns its ID.
func (c *Client) CreateContainer(ctx context.Context, name string, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig) (string, error) {
	resp, err := c.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// StartContainer starts a created or stopped container.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.api.ContainerStart(ctx, id, container.StartOptions{})
}

// StopContainer stops a running container with the given timeout in seconds.
func (c *Client) StopContainer(ctx context.Context, id string, timeout int) error {
	return c.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
}

// RemoveContainer removes a container (force).
func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	return c.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// ContainerLogs opens the raw log stream. The caller demultiplexes and
// closes it.
func (c *Client) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	return c.api.ContainerLogs(ctx, id, opts)
}

// ExecContainer runs a command inside a container and returns exit code +
// merged output.
func (c *Client) ExecContainer(ctx context.Context, id string, cmd []string) (int, string, error) {
	execResp, err := c.api.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, "", fmt.Errorf("exec create: %w", err)
	}

	attachResp, err := c.api.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, "", fmt.Errorf("exec attach: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return -1, "", fmt.Errorf("exec read: %w", err)
	}
	if stderr.Len() > 0 {
		stdout.WriteString(stderr.String())
	}

	inspectResp, err := c.api.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return -1, stdout.String(), fmt.Errorf("exec inspect: %w", err)
	}
	return inspectResp.ExitCode, stdout.String(), nil
}

// ImagePresent reports whether the image exists in the local daemon cache.
func (c *Client) ImagePresent(ctx context.Context, refStr string) (bool, error) {
	_, err := c.api.ImageInspect(ctx, refStr)
	if client.IsErrNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PullImage pulls an image by reference, draining the progress stream so the
// pull runs to completion. registryAuth is the encoded auth header, or empty.
func (c *Client) PullImage(ctx context.Context, refStr, registryAuth string) error {
	reader, err := c.api.ImagePull(ctx, refStr, image.PullOptions{RegistryAuth: registryAuth})
	if err != nil {
		return err
	}
	defer reader.Close()

	// The pull is not complete until the progress stream is fully consumed.
	_, err = io.Copy(io.Discard, reader)
	return err
}

// NetworkExists reports whether a network with the given name exists.
func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.NetworkInspect(ctx, name, network.InspectOptions{})
	if client.IsErrNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateNetwork creates a bridge network with the given name.
func (c *Client) CreateNetwork(ctx context.Context, name string) error {
	_, err := c.api.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	return err
}

// ConnectNetwork attaches a container to a network under the given aliases.
func (c *Client) ConnectNetwork(ctx context.Context, name, containerID string, aliases []string) error {
	return c.api.NetworkConnect(ctx, name, containerID, &network.EndpointSettings{Aliases: aliases})
}

// Info returns the daemon's host info snapshot.
func (c *Client) Info(ctx context.Context) (system.Info, error) {
	return c.api.Info(ctx)
}

// Ping checks that the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.Ping(ctx)
	return err
}

// Close releases the Docker client resources.
func (c *Client) Close() error {
	return c.api.Close()
}
