// Package calibrate fuses the stage outputs into a single calibrated
// probability with a split-conformal confidence interval and an ordered
// decision graph for auditability.
package calibrate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/hakim/threatscore/internal/models"
)

// Sample is one held-out calibration observation: what the combiner
// predicted and the labeled ground truth (1 malicious, 0 benign).
type Sample struct {
	Predicted float64 `json:"predicted"`
	Label     float64 `json:"label"`
}

// Store supplies historical calibration samples per reachability branch.
// Calibration differs by branch: ONLINE predictions are graded against
// richer evidence than OFFLINE ones, so their residuals are not mixable.
type Store interface {
	Samples(ctx context.Context, branch models.Reachability) ([]Sample, error)
}

// StaticStore serves a fixed in-memory sample set; used in tests and when
// calibration data ships with the configuration.
type StaticStore struct {
	ByBranch map[models.Reachability][]Sample
}

// Samples returns the branch's sample set; missing branches yield nil.
func (s *StaticStore) Samples(_ context.Context, branch models.Reachability) ([]Sample, error) {
	return s.ByBranch[branch], nil
}

const bucketCalibration = "calibration"

// BoltStore persists calibration samples in bbolt, one record per branch.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore initializes the calibration bucket on an open database.
// The database handle is shared with the result store; the caller owns
// its lifecycle.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCalibration))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("calibrate: creating bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Samples loads the branch's calibration set.
func (s *BoltStore) Samples(_ context.Context, branch models.Reachability) ([]Sample, error) {
	var samples []Sample
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketCalibration)).Get([]byte(branch))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &samples)
	})
	if err != nil {
		return nil, fmt.Errorf("calibrate: loading samples for %s: %w", branch, err)
	}
	return samples, nil
}

// AddSamples appends labeled observations to the branch's calibration set.
// Calibration tooling calls this after grading past verdicts.
func (s *BoltStore) AddSamples(branch models.Reachability, newSamples []Sample) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketCalibration))

		var samples []Sample
		if data := bucket.Get([]byte(branch)); data != nil {
			if err := json.Unmarshal(data, &samples); err != nil {
				return fmt.Errorf("calibrate: decoding existing samples: %w", err)
			}
		}
		samples = append(samples, newSamples...)

		data, err := json.Marshal(samples)
		if err != nil {
			return fmt.Errorf("calibrate: encoding samples: %w", err)
		}
		return bucket.Put([]byte(branch), data)
	})
}
