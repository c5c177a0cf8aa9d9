package docker

import (
	"context"

	"github.com/kemeter/ring/internal/runtime"
)

// ensureNetwork creates the per-namespace bridge network if it does not
// already exist. Inspect-before-create keeps the operation idempotent
// across deployments sharing a namespace.
func (dr *Driver) ensureNetwork(ctx context.Context, name string) error {
	exists, err := dr.api.NetworkExists(ctx, name)
	if err != nil {
		return runtime.WrapError(runtime.KindNetworkCreationFailed, err)
	}
	if exists {
		return nil
	}
	if err := dr.api.CreateNetwork(ctx, name); err != nil {
		return runtime.WrapError(runtime.KindNetworkCreationFailed, err)
	}
	dr.log.Info("network created", "network", name)
	return nil
}
