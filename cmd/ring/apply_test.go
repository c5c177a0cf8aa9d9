package main

import (
	"strings"
	"testing"

	"github.com/kemeter/ring/internal/types"
)

func TestParseEnvFile(t *testing.T) {
	data := []byte(`
# production values
APP_IMAGE=nginx:1.27
REPLICAS=3
DSN=postgres://user:pass@db/app?sslmode=disable

EMPTY=
`)
	vars, err := parseEnvFile(data)
	if err != nil {
		t.Fatalf("parseEnvFile: %v", err)
	}
	want := map[string]string{
		"APP_IMAGE": "nginx:1.27",
		"REPLICAS":  "3",
		"DSN":       "postgres://user:pass@db/app?sslmode=disable",
		"EMPTY":     "",
	}
	if len(vars) != len(want) {
		t.Fatalf("got %d vars, want %d: %v", len(vars), len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("vars[%q] = %q, want %q", k, vars[k], v)
		}
	}
}

func TestParseEnvFileMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no equals", "APP_IMAGE nginx"},
		{"empty key", "=value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEnvFile([]byte(tt.data)); err == nil {
				t.Fatalf("expected error for %q", tt.data)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	raw := []byte(`
deployments:
  web:
    namespace: ring
    runtime: docker
    image: nginx:1.27
    replicas: 2
    labels:
      app: web
    health_checks:
      - type: http
        url: http://localhost:80/
  backup:
    namespace: ring
    runtime: docker
    kind: job
    image: alpine:3.20
    command: ["tar", "czf", "/backup.tgz", "/data"]
    volumes:
      - type: bind
        source: /srv/data
        destination: /data
        permission: ro
`)
	deployments, err := loadManifest(raw)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if len(deployments) != 2 {
		t.Fatalf("got %d deployments, want 2", len(deployments))
	}

	// Sorted by name: backup before web.
	backup, web := deployments[0], deployments[1]
	if backup.Name != "backup" || web.Name != "web" {
		t.Fatalf("unexpected order: %q, %q", backup.Name, web.Name)
	}

	if web.Kind != types.KindWorker {
		t.Errorf("web kind = %q, want default worker", web.Kind)
	}
	if web.Replicas != 2 {
		t.Errorf("web replicas = %d, want 2", web.Replicas)
	}
	if web.Config.ImagePullPolicy != types.PullAlways {
		t.Errorf("web pull policy = %q, want default Always", web.Config.ImagePullPolicy)
	}
	if len(web.HealthChecks) != 1 || web.HealthChecks[0].Threshold != types.DefaultThreshold {
		t.Errorf("web health check not normalized: %+v", web.HealthChecks)
	}

	if backup.Kind != types.KindJob {
		t.Errorf("backup kind = %q, want job", backup.Kind)
	}
	if backup.Replicas != 1 {
		t.Errorf("backup replicas = %d, want default 1", backup.Replicas)
	}
	if len(backup.Command) != 4 {
		t.Errorf("backup command = %v", backup.Command)
	}
	if len(backup.Volumes) != 1 || !backup.Volumes[0].ReadOnly() {
		t.Errorf("backup volume not decoded: %+v", backup.Volumes)
	}
}

func TestLoadManifestExpandsVariables(t *testing.T) {
	t.Setenv("APP_IMAGE", "nginx:1.27")
	t.Setenv("APP_SECRET", "s3cret")

	raw := []byte(`
deployments:
  web:
    namespace: ring
    runtime: docker
    image: ${APP_IMAGE}
    secrets:
      API_KEY: ${APP_SECRET}
`)
	deployments, err := loadManifest(raw)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if deployments[0].Image != "nginx:1.27" {
		t.Errorf("image = %q, want expanded value", deployments[0].Image)
	}
	if deployments[0].Secrets["API_KEY"] != "s3cret" {
		t.Errorf("secret = %q, want expanded value", deployments[0].Secrets["API_KEY"])
	}
}

func TestLoadManifestValidation(t *testing.T) {
	raw := []byte(`
deployments:
  web:
    namespace: ring
    runtime: podman
    image: nginx:1.27
`)
	_, err := loadManifest(raw)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "web") || !strings.Contains(err.Error(), "podman") {
		t.Errorf("error should name the deployment and the bad runtime: %v", err)
	}
}

func TestLoadManifestBadYAML(t *testing.T) {
	if _, err := loadManifest([]byte("deployments: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
