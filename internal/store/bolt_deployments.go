package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

// Deployment rows carry the volume list as a single JSON string (legacy
// row shape, preserved for round-trip). encodeDeployment shadows the typed
// field with the string form; decodeDeployment reverses it.

func encodeDeployment(d *types.Deployment) ([]byte, error) {
	vols, err := json.Marshal(d.Volumes)
	if err != nil {
		return nil, fmt.Errorf("marshal volumes: %w", err)
	}
	type alias types.Deployment
	rec := struct {
		*alias
		Volumes string `json:"volumes"`
	}{(*alias)(d), string(vols)}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal deployment: %w", err)
	}
	return data, nil
}

func decodeDeployment(data []byte) (*types.Deployment, error) {
	var d types.Deployment
	type alias types.Deployment
	rec := struct {
		*alias
		Volumes string `json:"volumes"`
	}{alias: (*alias)(&d)}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal deployment: %w", err)
	}
	if rec.Volumes != "" && rec.Volumes != "null" {
		if err := json.Unmarshal([]byte(rec.Volumes), &d.Volumes); err != nil {
			return nil, fmt.Errorf("unmarshal deployment volumes: %w", err)
		}
	}
	return &d, nil
}

// CreateDeployment inserts a new deployment row. Returns ErrConflict when
// the id is already present.
func (s *Store) CreateDeployment(d *types.Deployment) error {
	data, err := encodeDeployment(d)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		if existing := b.Get([]byte(d.ID)); existing != nil {
			return fmt.Errorf("deployment %s: %w", d.ID, ErrConflict)
		}
		return b.Put([]byte(d.ID), data)
	})
}

// GetDeployment retrieves a deployment by id. Returns nil, nil on a miss.
func (s *Store) GetDeployment(id string) (*types.Deployment, error) {
	var d *types.Deployment
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDeployments).Get([]byte(id))
		if v == nil {
			return nil
		}
		var derr error
		d, derr = decodeDeployment(v)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDeployment overwrites an existing deployment row.
func (s *Store) UpdateDeployment(d *types.Deployment) error {
	data, err := encodeDeployment(d)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		if existing := b.Get([]byte(d.ID)); existing == nil {
			return fmt.Errorf("deployment %q not found", d.ID)
		}
		return b.Put([]byte(d.ID), data)
	})
}

// ListDeployments returns deployments matching all filters: AND across
// columns, IN across a column's values. An empty value set is ignored.
// Status values match case-insensitively.
func (s *Store) ListDeployments(filters map[string][]string) ([]types.Deployment, error) {
	var out []types.Deployment
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeployments).ForEach(func(k, v []byte) error {
			d, err := decodeDeployment(v)
			if err != nil {
				return nil // skip malformed rows
			}
			ok, err := matchDeployment(d, filters)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, *d)
			}
			return nil
		})
	})
	return out, err
}

func matchDeployment(d *types.Deployment, filters map[string][]string) (bool, error) {
	for column, values := range filters {
		if len(values) == 0 {
			continue
		}
		var field string
		switch column {
		case "id":
			field = d.ID
		case "namespace":
			field = d.Namespace
		case "name":
			field = d.Name
		case "status":
			field = d.Status
		case "kind":
			field = d.Kind
		case "runtime":
			field = d.Runtime
		default:
			return false, fmt.Errorf("unknown deployment filter column %q", column)
		}
		matched := false
		for _, want := range values {
			if column == "status" {
				if strings.EqualFold(field, want) {
					matched = true
					break
				}
				continue
			}
			if field == want {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// ActiveByNamespaceName returns non-Deleted deployments for the
// (namespace, name) pair, newest first.
func (s *Store) ActiveByNamespaceName(namespace, name string) ([]types.Deployment, error) {
	all, err := s.ListDeployments(map[string][]string{
		"namespace": {namespace},
		"name":      {name},
	})
	if err != nil {
		return nil, err
	}
	var active []types.Deployment
	for _, d := range all {
		if d.Status != types.StatusDeleted {
			active = append(active, d)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}

// DeletedByNamespaceName returns Deleted deployments for the
// (namespace, name) pair, newest first. Rollback picks its candidate here.
func (s *Store) DeletedByNamespaceName(namespace, name string) ([]types.Deployment, error) {
	all, err := s.ListDeployments(map[string][]string{
		"namespace": {namespace},
		"name":      {name},
		"status":    {types.StatusDeleted},
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// DeleteDeployments removes deployment rows in one transaction. Missing ids
// are skipped.
func (s *Store) DeleteDeployments(ids []string) error {
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}
