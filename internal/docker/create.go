package docker

import (
	"context"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/registry"

	"github.com/kemeter/ring/internal/metrics"
	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// createInstance runs the container creation pipeline: image pull per
// policy, per-namespace network, config materialization, create, connect,
// start. On failure no started container is left behind and the returned
// error carries its classification.
func (dr *Driver) createInstance(ctx context.Context, d *types.Deployment, configs map[string]types.Config) (string, error) {
	imageRef := imageReference(d)
	if err := dr.ensureImage(ctx, d, imageRef); err != nil {
		return "", err
	}

	netName := networkName(d.Namespace)
	if err := dr.ensureNetwork(ctx, netName); err != nil {
		return "", err
	}

	mounts, err := dr.buildMounts(d, configs)
	if err != nil {
		return "", err
	}

	name := containerName(d.Namespace, d.Name, tinyID())
	cfg := &container.Config{
		Image:  imageRef,
		Cmd:    d.Command,
		Env:    secretsEnv(d.Secrets),
		Labels: instanceLabels(d),
		User:   d.Config.User.UnixUser(),
	}
	hostCfg, err := buildHostConfig(d, mounts)
	if err != nil {
		return "", err
	}

	containerID, err := dr.api.CreateContainer(ctx, name, cfg, hostCfg, nil)
	if err != nil {
		return "", runtime.WrapError(runtime.KindInstanceCreationFailed, err)
	}
	if err := dr.api.ConnectNetwork(ctx, netName, containerID, []string{d.Name, name}); err != nil {
		dr.removeCreated(ctx, containerID)
		return "", runtime.WrapError(runtime.KindNetworkCreationFailed, err)
	}
	if err := dr.api.StartContainer(ctx, containerID); err != nil {
		dr.removeCreated(ctx, containerID)
		return "", runtime.WrapError(runtime.KindInstanceCreationFailed, err)
	}

	metrics.InstancesCreated.Inc()
	dr.log.Info("instance started",
		"deployment", d.ID, "namespace", d.Namespace, "name", d.Name, "container", name)
	return containerID, nil
}

// imageReference normalizes the deployment image to name:tag form.
func imageReference(d *types.Deployment) string {
	name, tag := d.ImageParts()
	return name + ":" + tag
}

// ensureImage makes the image available locally according to the pull
// policy. A pull is attempted only when the image is absent; Never skips
// the check entirely and lets container creation fail if the image is
// missing.
func (dr *Driver) ensureImage(ctx context.Context, d *types.Deployment, imageRef string) error {
	if d.PullPolicy() == types.PullNever {
		return nil
	}

	present, err := dr.api.ImagePresent(ctx, imageRef)
	if err != nil {
		return runtime.WrapError(runtime.KindImagePullFailed, err)
	}
	if present {
		return nil
	}

	auth, err := registryAuth(d.Config.Registry)
	if err != nil {
		return runtime.WrapError(runtime.KindImagePullFailed, err)
	}
	if err := dr.api.PullImage(ctx, imageRef, auth); err != nil {
		if isImageNotFound(err) {
			return runtime.WrapError(runtime.KindImageNotFound, err)
		}
		return runtime.WrapError(runtime.KindImagePullFailed, err)
	}

	// The pull stream reports per-layer progress, not success. Verify the
	// image actually landed.
	present, err = dr.api.ImagePresent(ctx, imageRef)
	if err != nil {
		return runtime.WrapError(runtime.KindImagePullFailed, err)
	}
	if !present {
		return runtime.Errorf(runtime.KindImageNotFound, "image %s not present after pull", imageRef)
	}
	return nil
}

// isImageNotFound detects registry responses for a nonexistent image. The
// daemon surfaces these as plain text, so match the known phrasings.
func isImageNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "manifest unknown") ||
		strings.Contains(msg, "404")
}

// registryAuth encodes registry credentials for the pull request header.
func registryAuth(reg *types.RegistryAuth) (string, error) {
	if reg == nil || reg.Username == "" {
		return "", nil
	}
	return registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      reg.Username,
		Password:      reg.Password,
		ServerAddress: reg.Server,
	})
}

// instanceLabels merges user labels with the reserved deployment label.
func instanceLabels(d *types.Deployment) map[string]string {
	labels := make(map[string]string, len(d.Labels)+1)
	for k, v := range d.Labels {
		labels[k] = v
	}
	labels[DeploymentLabel] = d.ID
	return labels
}

// secretsEnv renders deployment secrets as container environment entries,
// sorted for determinism.
func secretsEnv(secrets map[string]string) []string {
	if len(secrets) == 0 {
		return nil
	}
	env := make([]string, 0, len(secrets))
	for k, v := range secrets {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// buildHostConfig renders resource limits and mounts into the container's
// host configuration.
func buildHostConfig(d *types.Deployment, mounts []mount.Mount) (*container.HostConfig, error) {
	hostCfg := &container.HostConfig{Mounts: mounts}
	if u := d.Config.User; u != nil {
		hostCfg.Privileged = u.Privileged
	}
	r := d.Resources
	if r == nil {
		return hostCfg, nil
	}

	if r.CPULimit > 0 {
		hostCfg.Resources.NanoCPUs = int64(r.CPULimit * 1e9)
	}
	if r.MemoryLimit != "" {
		n, err := types.ParseMemoryBytes(r.MemoryLimit)
		if err != nil {
			return nil, runtime.WrapError(runtime.KindOther, err)
		}
		hostCfg.Resources.Memory = n
	}
	if r.MemoryReservation != "" {
		n, err := types.ParseMemoryBytes(r.MemoryReservation)
		if err != nil {
			return nil, runtime.WrapError(runtime.KindOther, err)
		}
		hostCfg.Resources.MemoryReservation = n
	}
	hostCfg.Resources.CPUShares = r.CPUShares
	return hostCfg, nil
}

// removeCreated tears down a container left behind by a failed creation.
func (dr *Driver) removeCreated(ctx context.Context, containerID string) {
	if err := dr.api.RemoveContainer(ctx, containerID); err != nil {
		dr.log.Warn("cleanup of failed instance", "container", containerID, "error", err)
	}
}
