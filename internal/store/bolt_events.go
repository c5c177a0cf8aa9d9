package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

// CreateEvent appends an event row and stamps last_event_at on the parent
// deployment in the same transaction. Missing id and timestamp are filled
// in on the passed event.
func (s *Store) CreateEvent(ev *types.DeploymentEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if err := b.Put(scopedKey(ev.DeploymentID, ev.Timestamp, ev.ID), data); err != nil {
			return err
		}

		// Stamp the parent row. The deployment may already be cleaned up
		// when draining trailing events; that is not an error.
		db := tx.Bucket(bucketDeployments)
		row := db.Get([]byte(ev.DeploymentID))
		if row == nil {
			return nil
		}
		d, err := decodeDeployment(row)
		if err != nil {
			return err
		}
		ts := ev.Timestamp
		d.LastEventAt = &ts
		updated, err := encodeDeployment(d)
		if err != nil {
			return err
		}
		return db.Put([]byte(ev.DeploymentID), updated)
	})
}

// EventsByDeployment returns a deployment's events newest first, capped at
// min(limit, 1000), defaulting to 100.
func (s *Store) EventsByDeployment(deploymentID string, limit int) ([]types.DeploymentEvent, error) {
	return s.readEvents(deploymentID, "", limit)
}

// EventsByDeploymentAndLevel is EventsByDeployment filtered to one level.
func (s *Store) EventsByDeploymentAndLevel(deploymentID, level string, limit int) ([]types.DeploymentEvent, error) {
	return s.readEvents(deploymentID, level, limit)
}

func (s *Store) readEvents(deploymentID, level string, limit int) ([]types.DeploymentEvent, error) {
	limit = capLimit(limit)
	prefix := scopePrefix(deploymentID)
	var events []types.DeploymentEvent

	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()

		// Seek just past the deployment's key range, then walk backwards:
		// newest first without sorting.
		k, v := c.Seek(scopeEnd(deploymentID))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var ev types.DeploymentEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				continue
			}
			if level != "" && ev.Level != level {
				continue
			}
			events = append(events, ev)
			if len(events) >= limit {
				break
			}
		}
		return nil
	})
	return events, err
}

// DeleteEventsByDeployment removes every event row for a deployment.
func (s *Store) DeleteEventsByDeployment(deploymentID string) error {
	return s.update(func(tx *bolt.Tx) error {
		_, err := deleteScope(tx.Bucket(bucketEvents), deploymentID)
		return err
	})
}
