package types

import (
	"testing"
	"time"
)

func TestImageParts(t *testing.T) {
	tests := []struct {
		image    string
		wantName string
		wantTag  string
	}{
		{"nginx", "nginx", "latest"},
		{"nginx:latest", "nginx", "latest"},
		{"nginx:1.27", "nginx", "1.27"},
		{"ghcr.io/owner/app:v2", "ghcr.io/owner/app", "v2"},
		{"nginx:", "nginx", "latest"},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			d := Deployment{Image: tt.image}
			name, tag := d.ImageParts()
			if name != tt.wantName || tag != tt.wantTag {
				t.Errorf("ImageParts() = (%q, %q), want (%q, %q)", name, tag, tt.wantName, tt.wantTag)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	d := Deployment{
		Name: "web", Namespace: "ring", Image: "nginx", Runtime: "docker",
		HealthChecks: []HealthCheck{{Type: "tcp", Port: 80}},
	}
	d.Normalize()

	if d.Kind != KindWorker {
		t.Errorf("kind = %q, want %q", d.Kind, KindWorker)
	}
	if d.Replicas != 1 {
		t.Errorf("replicas = %d, want 1", d.Replicas)
	}
	if d.Config.ImagePullPolicy != PullAlways {
		t.Errorf("image pull policy = %q, want %q", d.Config.ImagePullPolicy, PullAlways)
	}
	if d.HealthChecks[0].Threshold != DefaultThreshold {
		t.Errorf("threshold = %d, want %d", d.HealthChecks[0].Threshold, DefaultThreshold)
	}
}

func TestDeploymentValidate(t *testing.T) {
	valid := func() Deployment {
		return Deployment{
			Name: "web", Namespace: "ring", Image: "nginx",
			Runtime: "docker", Kind: "worker",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Deployment)
		wantErr string
	}{
		{"valid", func(d *Deployment) {}, ""},
		{"missing name", func(d *Deployment) { d.Name = "" }, "name is required"},
		{"missing namespace", func(d *Deployment) { d.Namespace = "" }, "namespace is required"},
		{"missing image", func(d *Deployment) { d.Image = "" }, "image is required"},
		{"bad runtime", func(d *Deployment) { d.Runtime = "podman" }, `unsupported runtime "podman"`},
		{"bad kind", func(d *Deployment) { d.Kind = "daemon" }, `unsupported kind "daemon"`},
		{
			"bad pull policy",
			func(d *Deployment) { d.Config.ImagePullPolicy = "Sometimes" },
			`unsupported image pull policy "Sometimes"`,
		},
		{
			"invalid volume surfaces",
			func(d *Deployment) { d.Volumes = []Volume{{Type: "bind", Destination: "/d"}} },
			"source is required for bind volumes",
		},
		{
			"invalid health check surfaces",
			func(d *Deployment) { d.HealthChecks = []HealthCheck{{Type: "tcp"}} },
			"port is required for tcp health checks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			err := d.Validate()
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

func TestCanonicalStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"running", "Running", true},
		{"Running", "Running", true},
		{"RUNNING", "Running", true},
		{"crashloopbackoff", "CrashLoopBackOff", true},
		{"deleted", "Deleted", true},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalStatus(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CanonicalStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestUnixUser(t *testing.T) {
	id := int64(1000)
	group := int64(998)

	tests := []struct {
		name string
		spec *UserSpec
		want string
	}{
		{"nil spec", nil, ""},
		{"empty spec", &UserSpec{}, ""},
		{"id only", &UserSpec{ID: &id}, "1000"},
		{"id and group", &UserSpec{ID: &id, Group: &group}, "1000:998"},
		{"group only ignored", &UserSpec{Group: &group}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.UnixUser(); got != tt.want {
				t.Errorf("UnixUser() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventAppendsPending(t *testing.T) {
	d := Deployment{ID: "dep-1"}
	before := time.Now()
	d.Event(LevelError, ReasonImagePullBackOff, "pull failed")

	if len(d.PendingEvents) != 1 {
		t.Fatalf("pending events = %d, want 1", len(d.PendingEvents))
	}
	ev := d.PendingEvents[0]
	if ev.DeploymentID != "dep-1" || ev.Level != LevelError || ev.Reason != ReasonImagePullBackOff {
		t.Errorf("event = %+v", ev)
	}
	if ev.Component != ComponentDocker {
		t.Errorf("component = %q, want %q", ev.Component, ComponentDocker)
	}
	if ev.Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("timestamp not stamped: %v", ev.Timestamp)
	}
}
