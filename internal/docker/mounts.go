package docker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/mount"

	"github.com/kemeter/ring/internal/runtime"
	"github.com/kemeter/ring/internal/types"
)

// buildMounts translates declared volumes into Docker mounts. Config volume
// contents are materialized under configMountRoot first.
func (dr *Driver) buildMounts(d *types.Deployment, configs map[string]types.Config) ([]mount.Mount, error) {
	if len(d.Volumes) == 0 {
		return nil, nil
	}
	mounts := make([]mount.Mount, 0, len(d.Volumes))
	for _, v := range d.Volumes {
		m, err := dr.buildMount(d, v, configs)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

func (dr *Driver) buildMount(d *types.Deployment, v types.Volume, configs map[string]types.Config) (mount.Mount, error) {
	switch v.Type {
	case types.VolumeBind:
		// Relative sources predate strict validation; they fall back to
		// named volume semantics.
		typ := mount.TypeVolume
		if strings.HasPrefix(v.Source, "/") {
			typ = mount.TypeBind
		}
		return mount.Mount{
			Type:     typ,
			Source:   v.Source,
			Target:   v.Destination,
			ReadOnly: v.ReadOnly(),
		}, nil

	case types.VolumeNamed:
		m := mount.Mount{
			Type:     mount.TypeVolume,
			Source:   v.Source,
			Target:   v.Destination,
			ReadOnly: v.ReadOnly(),
		}
		if v.Driver != "" && v.Driver != types.DriverLocal {
			m.VolumeOptions = &mount.VolumeOptions{
				DriverConfig: &mount.Driver{Name: v.Driver},
			}
		}
		return m, nil

	case types.VolumeConfig:
		return dr.buildConfigMount(d, v, configs)
	}
	return mount.Mount{}, runtime.Errorf(runtime.KindOther, "unsupported volume type %q", v.Type)
}

// buildConfigMount materializes one key of a named config to a file and
// bind-mounts it read-only. Each file gets a fresh id so a deployment can
// mount several keys without collisions.
func (dr *Driver) buildConfigMount(d *types.Deployment, v types.Volume, configs map[string]types.Config) (mount.Mount, error) {
	cfg, ok := configs[v.Source]
	if !ok {
		return mount.Mount{}, runtime.Errorf(runtime.KindConfigNotFound,
			"config %q not found in namespace %s", v.Source, d.Namespace)
	}
	data, err := cfg.DataObject()
	if err != nil {
		return mount.Mount{}, runtime.WrapError(runtime.KindConfigNotFound, err)
	}
	content, ok := data[v.Key]
	if !ok {
		return mount.Mount{}, runtime.Errorf(runtime.KindConfigKeyNotFound,
			"key %q not found in config %q", v.Key, v.Source)
	}

	dir := filepath.Join(dr.configRoot, d.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mount.Mount{}, runtime.WrapError(runtime.KindFileSystemError, err)
	}
	path := filepath.Join(dir, tinyID())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return mount.Mount{}, runtime.WrapError(runtime.KindFileSystemError, err)
	}

	return mount.Mount{
		Type:     mount.TypeBind,
		Source:   path,
		Target:   v.Destination,
		ReadOnly: true,
	}, nil
}
