package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, 2)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDeployment(id, namespace, name, status string) *types.Deployment {
	return &types.Deployment{
		ID:        id,
		Namespace: namespace,
		Name:      name,
		Runtime:   types.RuntimeDocker,
		Kind:      types.KindWorker,
		Image:     "nginx:latest",
		Replicas:  1,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestDeploymentRoundTrip(t *testing.T) {
	s := testStore(t)

	d := testDeployment("dep-1", "ring", "web", types.StatusCreating)
	d.Volumes = []types.Volume{
		{Type: "bind", Source: "/srv/data", Destination: "/data", Permission: "rw"},
		{Type: "config", Source: "app", Key: "app.conf", Destination: "/etc/app.conf", Permission: "ro"},
	}
	d.Secrets = map[string]string{"API_KEY": "hunter2"}
	d.Resources = &types.Resources{CPULimit: 0.5, MemoryLimit: "256Mi"}
	d.Instances = []string{"c1", "c2"}

	if err := s.CreateDeployment(d); err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}

	got, err := s.GetDeployment("dep-1")
	if err != nil {
		t.Fatalf("GetDeployment: %v", err)
	}
	if got == nil {
		t.Fatal("GetDeployment returned nil")
	}
	if got.Name != "web" || got.Namespace != "ring" || got.Status != types.StatusCreating {
		t.Errorf("got %+v", got)
	}
	if len(got.Volumes) != 2 || got.Volumes[1].Key != "app.conf" {
		t.Errorf("volumes did not round-trip: %+v", got.Volumes)
	}
	if got.Resources == nil || got.Resources.MemoryLimit != "256Mi" {
		t.Errorf("resources did not round-trip: %+v", got.Resources)
	}
	if len(got.Instances) != 2 {
		t.Errorf("instances did not round-trip: %+v", got.Instances)
	}
}

// The row keeps volumes as one JSON string, not a nested array.
func TestDeploymentVolumesStoredAsString(t *testing.T) {
	s := testStore(t)

	d := testDeployment("dep-1", "ring", "web", types.StatusCreating)
	d.Volumes = []types.Volume{{Type: "bind", Source: "/srv", Destination: "/data"}}
	if err := s.CreateDeployment(d); err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		return json.Unmarshal(tx.Bucket(bucketDeployments).Get([]byte("dep-1")), &raw)
	})
	if err != nil {
		t.Fatal(err)
	}
	vols := string(raw["volumes"])
	if !strings.HasPrefix(vols, `"`) {
		t.Errorf("volumes column = %s, want a JSON string", vols)
	}
}

func TestGetDeploymentMissing(t *testing.T) {
	s := testStore(t)

	got, err := s.GetDeployment("nope")
	if err != nil {
		t.Fatalf("GetDeployment: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestCreateDeploymentConflict(t *testing.T) {
	s := testStore(t)

	d := testDeployment("dep-1", "ring", "web", types.StatusCreating)
	if err := s.CreateDeployment(d); err != nil {
		t.Fatal(err)
	}
	err := s.CreateDeployment(d)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("CreateDeployment error = %v, want ErrConflict", err)
	}
}

func TestUpdateDeploymentMissing(t *testing.T) {
	s := testStore(t)

	d := testDeployment("ghost", "ring", "web", types.StatusCreating)
	if err := s.UpdateDeployment(d); err == nil {
		t.Error("UpdateDeployment of missing row succeeded, want error")
	}
}

func TestListDeploymentsFilters(t *testing.T) {
	s := testStore(t)

	rows := []*types.Deployment{
		testDeployment("d1", "ring", "web", types.StatusRunning),
		testDeployment("d2", "ring", "api", types.StatusCreating),
		testDeployment("d3", "other", "web", types.StatusRunning),
		testDeployment("d4", "ring", "worker", types.StatusDeleted),
	}
	for _, d := range rows {
		if err := s.CreateDeployment(d); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		filters map[string][]string
		wantIDs []string
	}{
		{"no filters", nil, []string{"d1", "d2", "d3", "d4"}},
		{"namespace", map[string][]string{"namespace": {"ring"}}, []string{"d1", "d2", "d4"}},
		{
			"namespace and status",
			map[string][]string{"namespace": {"ring"}, "status": {"Running", "Creating"}},
			[]string{"d1", "d2"},
		},
		{"status case-insensitive", map[string][]string{"status": {"running"}}, []string{"d1", "d3"}},
		{"empty value set ignored", map[string][]string{"namespace": {}}, []string{"d1", "d2", "d3", "d4"}},
		{"no match", map[string][]string{"name": {"missing"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListDeployments(tt.filters)
			if err != nil {
				t.Fatalf("ListDeployments: %v", err)
			}
			ids := map[string]bool{}
			for _, d := range got {
				ids[d.ID] = true
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d rows (%v), want %d", len(got), ids, len(tt.wantIDs))
			}
			for _, id := range tt.wantIDs {
				if !ids[id] {
					t.Errorf("missing id %s in result", id)
				}
			}
		})
	}
}

func TestListDeploymentsUnknownColumn(t *testing.T) {
	s := testStore(t)
	if err := s.CreateDeployment(testDeployment("d1", "ring", "web", types.StatusRunning)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListDeployments(map[string][]string{"color": {"blue"}}); err == nil {
		t.Error("expected error for unknown filter column")
	}
}

func TestActiveByNamespaceName(t *testing.T) {
	s := testStore(t)

	old := testDeployment("old", "ring", "web", types.StatusRunning)
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	gone := testDeployment("gone", "ring", "web", types.StatusDeleted)
	fresh := testDeployment("fresh", "ring", "web", types.StatusCreating)

	for _, d := range []*types.Deployment{old, gone, fresh} {
		if err := s.CreateDeployment(d); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ActiveByNamespaceName("ring", "web")
	if err != nil {
		t.Fatalf("ActiveByNamespaceName: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].ID != "fresh" || got[1].ID != "old" {
		t.Errorf("order = [%s %s], want [fresh old]", got[0].ID, got[1].ID)
	}
}

func TestDeleteDeploymentsBatch(t *testing.T) {
	s := testStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateDeployment(testDeployment(id, "ring", id, types.StatusDeleted)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.DeleteDeployments([]string{"a", "c", "missing"}); err != nil {
		t.Fatalf("DeleteDeployments: %v", err)
	}

	left, err := s.ListDeployments(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].ID != "b" {
		t.Errorf("remaining = %+v, want only b", left)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := testStore(t)

	cfg := &types.Config{
		ID:        "cfg-1",
		Namespace: "ring",
		Name:      "app",
		Data:      `{"app.conf":"listen 80;"}`,
		Labels:    map[string]string{"team": "core"},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateConfig(cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	got, err := s.GetConfig("cfg-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "app" || got.Data != cfg.Data {
		t.Errorf("got %+v", got)
	}

	missing, err := s.GetConfig("nope")
	if err != nil || missing != nil {
		t.Errorf("GetConfig(nope) = (%+v, %v), want (nil, nil)", missing, err)
	}
}

func TestConfigsByNamespace(t *testing.T) {
	s := testStore(t)

	for _, c := range []*types.Config{
		{ID: "c1", Namespace: "ring", Name: "app"},
		{ID: "c2", Namespace: "ring", Name: "db"},
		{ID: "c3", Namespace: "other", Name: "app"},
	} {
		if err := s.CreateConfig(c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ConfigsByNamespace("ring")
	if err != nil {
		t.Fatalf("ConfigsByNamespace: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d configs, want 2", len(got))
	}

	if err := s.DeleteConfig("c1"); err != nil {
		t.Fatal(err)
	}
	got, err = s.ConfigsByNamespace("ring")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c2" {
		t.Errorf("after delete got %+v, want only c2", got)
	}
}
