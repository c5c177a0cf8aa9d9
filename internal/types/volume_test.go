package types

import "testing"

func TestVolumeValidate(t *testing.T) {
	tests := []struct {
		name    string
		volume  Volume
		wantErr string
	}{
		{
			"valid bind",
			Volume{Type: "bind", Source: "/data", Destination: "/var/lib/data"},
			"",
		},
		{
			"valid named volume",
			Volume{Type: "volume", Source: "pgdata", Destination: "/var/lib/postgresql"},
			"",
		},
		{
			"valid config",
			Volume{Type: "config", Source: "app-config", Key: "nginx.conf", Destination: "/etc/nginx/nginx.conf", Permission: "ro"},
			"",
		},
		{
			"config without explicit permission",
			Volume{Type: "config", Source: "app-config", Key: "nginx.conf", Destination: "/etc/nginx/nginx.conf"},
			"",
		},
		{
			"missing destination",
			Volume{Type: "bind", Source: "/data"},
			"destination is required for volumes",
		},
		{
			"bind without source",
			Volume{Type: "bind", Destination: "/var/lib/data"},
			"source is required for bind volumes",
		},
		{
			"named volume without source",
			Volume{Type: "volume", Destination: "/var/lib/data"},
			"source is required for named volumes",
		},
		{
			"config without source",
			Volume{Type: "config", Key: "nginx.conf", Destination: "/etc/nginx/nginx.conf"},
			"source is required for config volumes",
		},
		{
			"config without key",
			Volume{Type: "config", Source: "app-config", Destination: "/etc/nginx/nginx.conf"},
			"key is required for config volumes",
		},
		{
			"config read-write",
			Volume{Type: "config", Source: "app-config", Key: "nginx.conf", Destination: "/etc/nginx/nginx.conf", Permission: "rw"},
			"config volumes must be read-only (ro)",
		},
		{
			"unknown type",
			Volume{Type: "tmpfs", Destination: "/tmp"},
			`unsupported volume type "tmpfs"`,
		},
		{
			"unknown driver",
			Volume{Type: "volume", Source: "data", Destination: "/data", Driver: "ceph"},
			`unsupported volume driver "ceph"`,
		},
		{
			"unknown permission",
			Volume{Type: "bind", Source: "/data", Destination: "/data", Permission: "rwx"},
			`unsupported volume permission "rwx"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.volume.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestVolumeNormalizeDefaults(t *testing.T) {
	d := Deployment{
		Name: "web", Namespace: "ring", Image: "nginx", Runtime: "docker",
		Volumes: []Volume{
			{Type: "bind", Source: "/data", Destination: "/data"},
			{Type: "config", Source: "cfg", Key: "app.conf", Destination: "/etc/app.conf"},
		},
	}
	d.Normalize()

	if got := d.Volumes[0].Permission; got != PermissionRW {
		t.Errorf("bind volume permission = %q, want %q", got, PermissionRW)
	}
	if got := d.Volumes[1].Permission; got != PermissionRO {
		t.Errorf("config volume permission = %q, want %q", got, PermissionRO)
	}
	if got := d.Volumes[0].Driver; got != DriverLocal {
		t.Errorf("volume driver = %q, want %q", got, DriverLocal)
	}
}
