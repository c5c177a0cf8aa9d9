package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

// Health result retention: rows older than retentionAge are removed, and
// each deployment keeps at most retentionCount recent rows.
const (
	healthRetentionAge   = 7 * 24 * time.Hour
	healthRetentionCount = 50
)

// StoreHealthResult persists one probe execution, keyed by started_at so
// per-deployment key order is chronological.
func (s *Store) StoreHealthResult(r *types.HealthCheckResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal health result: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHealthResults).Put(scopedKey(r.DeploymentID, r.StartedAt, r.ID), data)
	})
}

// HealthResultsByDeployment returns a deployment's results newest first,
// capped at min(limit, 1000), defaulting to 100.
func (s *Store) HealthResultsByDeployment(deploymentID string, limit int) ([]types.HealthCheckResult, error) {
	limit = capLimit(limit)
	prefix := scopePrefix(deploymentID)
	var results []types.HealthCheckResult

	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHealthResults).Cursor()
		k, v := c.Seek(scopeEnd(deploymentID))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var r types.HealthCheckResult
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			results = append(results, r)
			if len(results) >= limit {
				break
			}
		}
		return nil
	})
	return results, err
}

// LatestHealthByDeployment returns, for each distinct check_type seen on
// the deployment, the result with the greatest started_at.
func (s *Store) LatestHealthByDeployment(deploymentID string) ([]types.HealthCheckResult, error) {
	latest := map[string]types.HealthCheckResult{}
	prefix := scopePrefix(deploymentID)

	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHealthResults).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r types.HealthCheckResult
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			if cur, ok := latest[r.CheckType]; !ok || r.StartedAt.After(cur.StartedAt) {
				latest[r.CheckType] = r
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.HealthCheckResult, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckType < out[j].CheckType })
	return out, nil
}

// DeleteHealthResultsByDeployment removes every result row for a deployment.
func (s *Store) DeleteHealthResultsByDeployment(deploymentID string) error {
	return s.update(func(tx *bolt.Tx) error {
		_, err := deleteScope(tx.Bucket(bucketHealthResults), deploymentID)
		return err
	})
}

// CleanupOldHealthResults removes results older than the retention age and,
// per deployment, any beyond the most recent retentionCount. Returns the
// total number of rows deleted.
func (s *Store) CleanupOldHealthResults() (int, error) {
	cutoff := time.Now().UTC().Add(-healthRetentionAge)
	var deleted int

	err := s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHealthResults)

		type row struct {
			key       []byte
			startedAt time.Time
		}
		groups := map[string][]row{}

		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r types.HealthCheckResult
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			groups[r.DeploymentID] = append(groups[r.DeploymentID], row{keyCopy, r.StartedAt})
		}

		for _, rows := range groups {
			// Key order within a deployment is started_at ascending, so
			// the overflow beyond the retention count is the head.
			doomed := map[string]bool{}
			if len(rows) > healthRetentionCount {
				for _, r := range rows[:len(rows)-healthRetentionCount] {
					doomed[string(r.key)] = true
				}
			}
			for _, r := range rows {
				if r.startedAt.Before(cutoff) {
					doomed[string(r.key)] = true
				}
			}
			for k := range doomed {
				if err := b.Delete([]byte(k)); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}
