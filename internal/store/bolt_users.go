package store

import (
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/kemeter/ring/internal/types"
)

// ErrUsersExist is returned by CreateFirstUser when the store already holds
// at least one user.
var ErrUsersExist = errors.New("users already exist")

func userIndexKey(username string) []byte {
	return []byte("idx::username::" + username)
}

func tokenIndexKey(hash string) []byte {
	return []byte("idx::token::" + hash)
}

// CreateUser persists a new user with its username index, plus a token
// index when a token hash is already set. Fails if the username is taken.
func (s *Store) CreateUser(u *types.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if existing := b.Get(userIndexKey(u.Username)); existing != nil {
			return fmt.Errorf("username %q already exists", u.Username)
		}
		if err := b.Put([]byte(u.ID), data); err != nil {
			return err
		}
		if err := b.Put(userIndexKey(u.Username), []byte(u.ID)); err != nil {
			return err
		}
		if u.TokenHash != "" {
			return b.Put(tokenIndexKey(u.TokenHash), []byte(u.ID))
		}
		return nil
	})
}

// CreateFirstUser creates the seed user only if no user records exist yet.
// Returns ErrUsersExist otherwise.
func (s *Store) CreateFirstUser(u *types.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)

		count := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if !isIndexKey(k) {
				count++
			}
		}
		if count > 0 {
			return ErrUsersExist
		}

		if err := b.Put([]byte(u.ID), data); err != nil {
			return err
		}
		return b.Put(userIndexKey(u.Username), []byte(u.ID))
	})
}

// GetUser retrieves a user by id. Returns nil, nil on a miss.
func (s *Store) GetUser(id string) (*types.User, error) {
	var u *types.User
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUsers).Get([]byte(id))
		if v == nil {
			return nil
		}
		u = &types.User{}
		return json.Unmarshal(v, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername retrieves a user through the username index. Returns
// nil, nil on a miss.
func (s *Store) GetUserByUsername(username string) (*types.User, error) {
	var u *types.User
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		id := b.Get(userIndexKey(username))
		if id == nil {
			return nil
		}
		v := b.Get(id)
		if v == nil {
			return fmt.Errorf("username index orphan for %q", username)
		}
		u = &types.User{}
		return json.Unmarshal(v, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByToken resolves a bearer token hash to its user. This is the auth
// hot path; a miss is reported as ErrNotFound rather than a nil record.
func (s *Store) GetUserByToken(tokenHash string) (*types.User, error) {
	var u types.User
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		id := b.Get(tokenIndexKey(tokenHash))
		if id == nil {
			return ErrNotFound
		}
		v := b.Get(id)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser overwrites a user row, rotating the username and token indexes
// when either changed.
func (s *Store) UpdateUser(u *types.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)

		existing := b.Get([]byte(u.ID))
		if existing == nil {
			return fmt.Errorf("user %q not found", u.ID)
		}
		var old types.User
		if err := json.Unmarshal(existing, &old); err != nil {
			return fmt.Errorf("unmarshal existing user: %w", err)
		}

		if old.Username != u.Username {
			if v := b.Get(userIndexKey(u.Username)); v != nil {
				return fmt.Errorf("username %q already exists", u.Username)
			}
			if err := b.Delete(userIndexKey(old.Username)); err != nil {
				return err
			}
			if err := b.Put(userIndexKey(u.Username), []byte(u.ID)); err != nil {
				return err
			}
		}

		if old.TokenHash != u.TokenHash {
			if old.TokenHash != "" {
				if err := b.Delete(tokenIndexKey(old.TokenHash)); err != nil {
					return err
				}
			}
			if u.TokenHash != "" {
				if err := b.Put(tokenIndexKey(u.TokenHash), []byte(u.ID)); err != nil {
					return err
				}
			}
		}

		return b.Put([]byte(u.ID), data)
	})
}

// DeleteUser removes a user and its indexes. Deleting a missing user
// reports not-found.
func (s *Store) DeleteUser(id string) error {
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("user %q not found", id)
		}
		var u types.User
		if err := json.Unmarshal(v, &u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		if err := b.Delete(userIndexKey(u.Username)); err != nil {
			return err
		}
		if u.TokenHash != "" {
			return b.Delete(tokenIndexKey(u.TokenHash))
		}
		return nil
	})
}

// ListUsers returns all users (excluding index keys).
func (s *Store) ListUsers() ([]types.User, error) {
	var users []types.User
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			if isIndexKey(k) {
				return nil
			}
			var u types.User
			if err := json.Unmarshal(v, &u); err != nil {
				return nil // skip malformed records
			}
			users = append(users, u)
			return nil
		})
	})
	return users, err
}

// CountUsers returns the number of user records (excluding index keys).
func (s *Store) CountUsers() (int, error) {
	var count int
	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUsers).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if !isIndexKey(k) {
				count++
			}
		}
		return nil
	})
	return count, err
}
