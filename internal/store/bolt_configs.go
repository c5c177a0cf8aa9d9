package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

func configNamespaceIndexKey(namespace, id string) []byte {
	return []byte("idx::namespace::" + namespace + "::" + id)
}

func configNamespaceIndexPrefix(namespace string) []byte {
	return []byte("idx::namespace::" + namespace + "::")
}

// CreateConfig inserts a config row and its namespace index atomically.
func (s *Store) CreateConfig(c *types.Config) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfigs)
		if existing := b.Get([]byte(c.ID)); existing != nil {
			return fmt.Errorf("config %s: %w", c.ID, ErrConflict)
		}
		if err := b.Put([]byte(c.ID), data); err != nil {
			return err
		}
		return b.Put(configNamespaceIndexKey(c.Namespace, c.ID), []byte(c.ID))
	})
}

// GetConfig retrieves a config by id. Returns nil, nil on a miss.
func (s *Store) GetConfig(id string) (*types.Config, error) {
	var cfg *types.Config
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketConfigs).Get([]byte(id))
		if v == nil {
			return nil
		}
		cfg = &types.Config{}
		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateConfig overwrites an existing config row. The namespace never
// changes on update, so the index is left alone.
func (s *Store) UpdateConfig(c *types.Config) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfigs)
		if existing := b.Get([]byte(c.ID)); existing == nil {
			return fmt.Errorf("config %q not found", c.ID)
		}
		return b.Put([]byte(c.ID), data)
	})
}

// DeleteConfig removes a config row and its namespace index. Deleting a
// missing config is a no-op.
func (s *Store) DeleteConfig(id string) error {
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfigs)
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		var cfg types.Config
		if err := json.Unmarshal(v, &cfg); err == nil {
			if err := b.Delete(configNamespaceIndexKey(cfg.Namespace, id)); err != nil {
				return err
			}
		}
		return b.Delete([]byte(id))
	})
}

// ListConfigs returns configs matching the filters (same AND/IN contract
// as ListDeployments).
func (s *Store) ListConfigs(filters map[string][]string) ([]types.Config, error) {
	var out []types.Config
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfigs).ForEach(func(k, v []byte) error {
			if isIndexKey(k) {
				return nil
			}
			var cfg types.Config
			if err := json.Unmarshal(v, &cfg); err != nil {
				return nil // skip malformed rows
			}
			ok, err := matchConfig(&cfg, filters)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, cfg)
			}
			return nil
		})
	})
	return out, err
}

func matchConfig(c *types.Config, filters map[string][]string) (bool, error) {
	for column, values := range filters {
		if len(values) == 0 {
			continue
		}
		var field string
		switch column {
		case "id":
			field = c.ID
		case "namespace":
			field = c.Namespace
		case "name":
			field = c.Name
		default:
			return false, fmt.Errorf("unknown config filter column %q", column)
		}
		matched := false
		for _, want := range values {
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

// ConfigsByNamespace returns every config in a namespace via the namespace
// index. The scheduler keys the result by name before each apply.
func (s *Store) ConfigsByNamespace(namespace string) ([]types.Config, error) {
	var out []types.Config
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfigs)
		prefix := configNamespaceIndexPrefix(namespace)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			row := b.Get(v)
			if row == nil {
				continue
			}
			var cfg types.Config
			if err := json.Unmarshal(row, &cfg); err != nil {
				continue
			}
			out = append(out, cfg)
		}
		return nil
	})
	return out, err
}
