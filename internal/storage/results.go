package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/hakim/threatscore/internal/models"
)

// SaveResult persists a scan result and updates the hostname index so
// History can replay past verdicts for the same target.
func (s *Store) SaveResult(result *models.ScanResult) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("storage: encoding result %s: %w", result.ScanID, err)
		}

		results := tx.Bucket([]byte(bucketResults))
		if err := results.Put([]byte(result.ScanID), data); err != nil {
			return err
		}

		// hostname -> []scan_id mapping
		index := tx.Bucket([]byte(bucketResultIndex))
		hostKey := []byte(result.Hostname)

		var ids []string
		if existing := index.Get(hostKey); existing != nil {
			if err := json.Unmarshal(existing, &ids); err != nil {
				return fmt.Errorf("storage: decoding index for %s: %w", result.Hostname, err)
			}
		}
		if !slices.Contains(ids, result.ScanID) {
			ids = append(ids, result.ScanID)
		}

		indexData, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return index.Put(hostKey, indexData)
	})
}

// GetResult retrieves a scan result by ID. A missing ID yields (nil, nil).
func (s *Store) GetResult(id string) (*models.ScanResult, error) {
	var result *models.ScanResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketResults)).Get([]byte(id))
		if data == nil {
			return nil
		}
		result = &models.ScanResult{}
		return json.Unmarshal(data, result)
	})

	return result, err
}

// ListResults retrieves every stored result for a hostname, newest first.
func (s *Store) ListResults(hostname string) ([]*models.ScanResult, error) {
	var results []*models.ScanResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketResultIndex)).Get([]byte(hostname))
		if data == nil {
			return nil
		}

		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("storage: decoding index for %s: %w", hostname, err)
		}

		bucket := tx.Bucket([]byte(bucketResults))
		for _, id := range ids {
			raw := bucket.Get([]byte(id))
			if raw == nil {
				continue
			}
			var r models.ScanResult
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("storage: decoding result %s: %w", id, err)
			}
			results = append(results, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}

// LatestResult retrieves the most recent result for a hostname, or nil
// when the hostname has never been scanned.
func (s *Store) LatestResult(hostname string) (*models.ScanResult, error) {
	results, err := s.ListResults(hostname)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
