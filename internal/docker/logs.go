package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// Logs returns up to tail lines of a container's merged stdout and stderr.
// since bounds the window; both accept Docker's native syntax and may be
// empty.
func (dr *Driver) Logs(ctx context.Context, containerID, tail, since string) ([]string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
		Since:      since,
	}
	reader, err := dr.api.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		return nil, fmt.Errorf("container logs: %w", err)
	}
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		// Some containers run in raw TTY mode; fall back to a direct read.
		raw, err := dr.rawLogs(ctx, containerID, opts)
		if err != nil {
			return nil, err
		}
		return splitLines(raw), nil
	}
	if stderr.Len() > 0 {
		stdout.WriteString(stderr.String())
	}
	return splitLines(stdout.String()), nil
}

func (dr *Driver) rawLogs(ctx context.Context, containerID string, opts container.LogsOptions) (string, error) {
	reader, err := dr.api.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		return "", fmt.Errorf("container logs fallback: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// StreamLogs follows a container's log output line by line. The channel is
// closed when the container stops, the context is cancelled, or the stream
// ends.
func (dr *Driver) StreamLogs(ctx context.Context, containerID, tail, since string) (<-chan string, error) {
	info, err := dr.api.InspectContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect for log stream: %w", err)
	}
	tty := info.Config != nil && info.Config.Tty

	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
		Since:      since,
		Follow:     true,
	}
	reader, err := dr.api.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		return nil, fmt.Errorf("container logs: %w", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		defer reader.Close()

		var src io.Reader = reader
		if !tty {
			pr, pw := io.Pipe()
			defer pr.Close()
			go func() {
				_, err := stdcopy.StdCopy(pw, pw, reader)
				pw.CloseWithError(err)
			}()
			src = pr
		}

		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines, nil
}

// splitLines breaks log output into lines, dropping empties.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
