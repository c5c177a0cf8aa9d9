package docker

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
)

// fakeDocker implements API for driver tests.
type fakeDocker struct {
	mu sync.Mutex

	containers []container.Summary
	listErr    error

	inspectResults map[string]container.InspectResponse
	inspectErr     map[string]error

	createCalls   []string
	createConfigs map[string]*container.Config
	createHosts   map[string]*container.HostConfig
	createErr     error
	nextID        string

	startCalls []string
	startErr   map[string]error

	stopCalls   []string
	removeCalls []string
	removeErr   map[string]error

	logsData map[string]string
	logsErr  map[string]error

	execCalls []string
	execErr   map[string]error

	imagesPresent map[string]bool
	presentErr    error

	pullCalls []string
	pullAuths map[string]string
	pullErr   map[string]error

	networks       map[string]bool
	netCreateCalls []string
	netCreateErr   error
	connectCalls   []string
	connectAliases map[string][]string
	connectErr     error
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{
		inspectResults: make(map[string]container.InspectResponse),
		inspectErr:     make(map[string]error),
		createConfigs:  make(map[string]*container.Config),
		createHosts:    make(map[string]*container.HostConfig),
		startErr:       make(map[string]error),
		removeErr:      make(map[string]error),
		logsData:       make(map[string]string),
		logsErr:        make(map[string]error),
		execErr:        make(map[string]error),
		imagesPresent:  make(map[string]bool),
		pullAuths:      make(map[string]string),
		pullErr:        make(map[string]error),
		networks:       make(map[string]bool),
		connectAliases: make(map[string][]string),
	}
}

func (f *fakeDocker) ListContainers(_ context.Context, labelSelector string, statuses ...string) ([]container.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []container.Summary
	for _, c := range f.containers {
		if labelSelector != "" && !matchesLabel(c.Labels, labelSelector) {
			continue
		}
		if len(statuses) > 0 && !containsString(statuses, string(c.State)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesLabel(labels map[string]string, selector string) bool {
	k, v, _ := strings.Cut(selector, "=")
	return labels[k] == v
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func (f *fakeDocker) InspectContainer(_ context.Context, id string) (container.InspectResponse, error) {
	if err, ok := f.inspectErr[id]; ok && err != nil {
		return container.InspectResponse{}, err
	}
	return f.inspectResults[id], nil
}

func (f *fakeDocker) CreateContainer(_ context.Context, name string, cfg *container.Config, hostCfg *container.HostConfig, _ *network.NetworkingConfig) (string, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, name)
	f.createConfigs[name] = cfg
	f.createHosts[name] = hostCfg
	f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextID != "" {
		return f.nextID, nil
	}
	return "new-" + name, nil
}

func (f *fakeDocker) StartContainer(_ context.Context, id string) error {
	f.mu.Lock()
	f.startCalls = append(f.startCalls, id)
	f.mu.Unlock()
	if err, ok := f.startErr[id]; ok {
		return err
	}
	return nil
}

func (f *fakeDocker) StopContainer(_ context.Context, id string, _ int) error {
	f.mu.Lock()
	f.stopCalls = append(f.stopCalls, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeDocker) RemoveContainer(_ context.Context, id string) error {
	f.mu.Lock()
	f.removeCalls = append(f.removeCalls, id)
	f.mu.Unlock()
	if err, ok := f.removeErr[id]; ok {
		return err
	}
	return nil
}

func (f *fakeDocker) ContainerLogs(_ context.Context, id string, _ container.LogsOptions) (io.ReadCloser, error) {
	if err, ok := f.logsErr[id]; ok && err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.logsData[id])), nil
}

func (f *fakeDocker) ExecContainer(_ context.Context, id string, cmd []string) (int, string, error) {
	f.mu.Lock()
	f.execCalls = append(f.execCalls, id+" "+strings.Join(cmd, " "))
	f.mu.Unlock()
	if err, ok := f.execErr[id]; ok && err != nil {
		return -1, "", err
	}
	return 0, "", nil
}

func (f *fakeDocker) ImagePresent(_ context.Context, refStr string) (bool, error) {
	if f.presentErr != nil {
		return false, f.presentErr
	}
	return f.imagesPresent[refStr], nil
}

func (f *fakeDocker) PullImage(_ context.Context, refStr, registryAuth string) error {
	f.mu.Lock()
	f.pullCalls = append(f.pullCalls, refStr)
	f.pullAuths[refStr] = registryAuth
	f.mu.Unlock()
	if err, ok := f.pullErr[refStr]; ok && err != nil {
		return err
	}
	f.imagesPresent[refStr] = true
	return nil
}

func (f *fakeDocker) NetworkExists(_ context.Context, name string) (bool, error) {
	return f.networks[name], nil
}

func (f *fakeDocker) CreateNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	f.netCreateCalls = append(f.netCreateCalls, name)
	f.mu.Unlock()
	if f.netCreateErr != nil {
		return f.netCreateErr
	}
	f.networks[name] = true
	return nil
}

func (f *fakeDocker) ConnectNetwork(_ context.Context, name, containerID string, aliases []string) error {
	f.mu.Lock()
	f.connectCalls = append(f.connectCalls, name+":"+containerID)
	f.connectAliases[containerID] = aliases
	f.mu.Unlock()
	return f.connectErr
}

func (f *fakeDocker) Info(_ context.Context) (system.Info, error) {
	return system.Info{Name: "fake-node"}, nil
}

func (f *fakeDocker) Ping(_ context.Context) error { return nil }

func (f *fakeDocker) Close() error { return nil }

// Verify the fake keeps pace with the production interface.
var _ API = (*fakeDocker)(nil)
