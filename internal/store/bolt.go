// Package store persists ring's records in a single BoltDB file: one bucket
// per record type, JSON values, and "idx::" secondary keys kept in the owning
// bucket for indexed lookups.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDeployments   = []byte("deployments")
	bucketConfigs       = []byte("configs")
	bucketEvents        = []byte("events")
	bucketHealthResults = []byte("health_results")
	bucketUsers         = []byte("users")
)

// Read caps for event and health result listings.
const (
	defaultReadLimit = 100
	maxReadLimit     = 1000
)

// tsFormat is the fixed-width UTC timestamp used inside bucket keys. Unlike
// RFC3339Nano it never trims trailing zeros, so lexicographic key order is
// chronological order.
const tsFormat = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrConflict is returned when inserting a record whose id already exists.
	ErrConflict = errors.New("record already exists")
	// ErrNotFound is returned only on the token lookup hot path; all other
	// point reads report a miss as a nil record.
	ErrNotFound = errors.New("record not found")
)

// Store wraps a BoltDB database for ring persistence. A fixed pool of
// transaction slots bounds how many store operations run at once across the
// API, the scheduler and the health writer.
type Store struct {
	db    *bolt.DB
	slots chan struct{}
}

// Open creates or opens the database at path, ensures all buckets exist and
// sizes the transaction slot pool (RING_DB_POOL_SIZE, minimum 1).
func Open(path string, poolSize int) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDeployments, bucketConfigs, bucketEvents, bucketHealthResults, bucketUsers} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	if poolSize < 1 {
		poolSize = 1
	}
	return &Store{db: db, slots: make(chan struct{}, poolSize)}, nil
}

// Close closes the underlying BoltDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// acquire claims a transaction slot; the returned func releases it.
func (s *Store) acquire() func() {
	s.slots <- struct{}{}
	return func() { <-s.slots }
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	defer s.acquire()()
	return s.db.View(fn)
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	defer s.acquire()()
	return s.db.Update(fn)
}

var indexPrefix = []byte("idx::")

func isIndexKey(k []byte) bool {
	return bytes.HasPrefix(k, indexPrefix)
}

// capLimit clamps a requested read limit into [1, maxReadLimit], applying
// the default when the caller passed none.
func capLimit(limit int) int {
	if limit <= 0 {
		return defaultReadLimit
	}
	if limit > maxReadLimit {
		return maxReadLimit
	}
	return limit
}

// scopedKey builds "<deploymentID>::<ts>::<recordID>", the key layout used
// by the events and health_results buckets. Keys sort chronologically per
// deployment.
func scopedKey(deploymentID string, ts time.Time, recordID string) []byte {
	return []byte(deploymentID + "::" + ts.UTC().Format(tsFormat) + "::" + recordID)
}

// scopePrefix is the common prefix of every scopedKey for a deployment.
func scopePrefix(deploymentID string) []byte {
	return []byte(deploymentID + "::")
}

// scopeEnd sorts immediately after every scopedKey for a deployment
// (';' is the byte after ':'), so a cursor Seek lands past the range.
func scopeEnd(deploymentID string) []byte {
	return []byte(deploymentID + "::;")
}

// deleteScope removes every key under a deployment's scope prefix in the
// given bucket and reports how many were deleted. Keys are collected first;
// mutating during iteration is unsafe.
func deleteScope(b *bolt.Bucket, deploymentID string) (int, error) {
	prefix := scopePrefix(deploymentID)
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keyCopy := make([]byte, len(k))
		copy(keyCopy, k)
		keys = append(keys, keyCopy)
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
