package types

import "fmt"

// Volume types.
const (
	VolumeBind   = "bind"   // host path mount
	VolumeNamed  = "volume" // docker named volume
	VolumeConfig = "config" // file materialized from a Config entry
)

// Volume drivers for named volumes.
const (
	DriverLocal = "local"
	DriverNFS   = "nfs"
)

// Volume permissions.
const (
	PermissionRO = "ro"
	PermissionRW = "rw"
)

// Volume declares a single container mount.
type Volume struct {
	Type        string `json:"type" yaml:"type"`
	Source      string `json:"source,omitempty" yaml:"source"`
	Key         string `json:"key,omitempty" yaml:"key"` // config volumes: field of Config.Data to mount
	Destination string `json:"destination" yaml:"destination"`
	Driver      string `json:"driver,omitempty" yaml:"driver"`
	Permission  string `json:"permission,omitempty" yaml:"permission"`
}

func (v *Volume) normalize() {
	if v.Driver == "" {
		v.Driver = DriverLocal
	}
	if v.Permission == "" {
		if v.Type == VolumeConfig {
			v.Permission = PermissionRO
		} else {
			v.Permission = PermissionRW
		}
	}
}

// ReadOnly reports whether the mount is read-only.
func (v *Volume) ReadOnly() bool {
	return v.Permission == PermissionRO
}

// Validate checks the volume declaration and returns the first violated
// rule as a flat message.
func (v *Volume) Validate() error {
	if v.Destination == "" {
		return fmt.Errorf("destination is required for volumes")
	}
	switch v.Type {
	case VolumeBind:
		if v.Source == "" {
			return fmt.Errorf("source is required for bind volumes")
		}
	case VolumeNamed:
		if v.Source == "" {
			return fmt.Errorf("source is required for named volumes")
		}
	case VolumeConfig:
		if v.Source == "" {
			return fmt.Errorf("source is required for config volumes")
		}
		if v.Key == "" {
			return fmt.Errorf("key is required for config volumes")
		}
		if v.Permission != "" && v.Permission != PermissionRO {
			return fmt.Errorf("config volumes must be read-only (ro)")
		}
	default:
		return fmt.Errorf("unsupported volume type %q", v.Type)
	}
	switch v.Driver {
	case "", DriverLocal, DriverNFS:
	default:
		return fmt.Errorf("unsupported volume driver %q", v.Driver)
	}
	switch v.Permission {
	case "", PermissionRO, PermissionRW:
	default:
		return fmt.Errorf("unsupported volume permission %q", v.Permission)
	}
	return nil
}
