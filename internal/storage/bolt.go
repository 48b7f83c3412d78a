// Package storage persists scan results in a local bbolt database and
// handles filesystem layout for exported reports.
package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketResults     = "results"
	bucketResultIndex = "result_index"
)

// Store wraps a bbolt database for scan result persistence.
type Store struct {
	db *bbolt.DB
}

// NewStore opens a bbolt database at the given path and initializes
// required buckets.
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketResults)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketResultIndex)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle so sibling stores (calibration) can
// share one database file.
func (s *Store) DB() *bbolt.DB {
	return s.db
}

// Close closes the bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}
