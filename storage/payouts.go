package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	bolt "go.etcd.io/bbolt"
)

const (
	SUMMARY = "summary"
)

// SaveCycleSummary stores the aggregate figures of a processed cycle.
func (s *Storage) SaveCycleSummary(cycle int, summaryBytes []byte) error {

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(PAYOUTS_BUCKET)).CreateBucketIfNotExists(itob(cycle))
		if err != nil {
			return errors.Wrap(err, "Unable to create cycle payouts bucket")
		}

		return b.Put([]byte(SUMMARY), summaryBytes)
	})
}

// SavePaymentRecord stores one executed payment, keyed by the recipient
// address, so the web API can show who was paid what for a cycle.
func (s *Storage) SavePaymentRecord(cycle int, address string, recordBytes []byte) error {

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(PAYOUTS_BUCKET)).CreateBucketIfNotExists(itob(cycle))
		if err != nil {
			return errors.Wrap(err, "Unable to create cycle payouts bucket")
		}

		return b.Put([]byte(address), recordBytes)
	})
}

// GetPayoutsSummaries returns the stored per-cycle summaries as raw JSON,
// keyed by cycle.
func (s *Storage) GetPayoutsSummaries() (map[int]json.RawMessage, error) {

	summaries := make(map[int]json.RawMessage)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(PAYOUTS_BUCKET))
		if b == nil {
			return errors.New("Unable to locate payouts bucket")
		}

		c := b.Cursor()

		for k, _ := c.First(); k != nil; k, _ = c.Next() {

			// Keys are cycle numbers, which are buckets of data
			cycleBucket := b.Bucket(k)
			if cycleBucket == nil {
				continue
			}

			summaryBytes := cycleBucket.Get([]byte(SUMMARY))
			if summaryBytes == nil {
				continue
			}

			summaries[btoi(k)] = json.RawMessage(summaryBytes)
		}

		return nil
	})

	return summaries, err
}

// GetCyclePayouts returns the executed payments of one cycle as raw JSON,
// keyed by recipient address.
func (s *Storage) GetCyclePayouts(cycle int) (map[string]json.RawMessage, error) {

	cyclePayouts := make(map[string]json.RawMessage)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(PAYOUTS_BUCKET)).Bucket(itob(cycle))
		if b == nil {
			return errors.New("Unable to locate cycle payouts bucket")
		}

		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(k) == SUMMARY {
				continue
			}

			cyclePayouts[string(k)] = json.RawMessage(v)
		}

		return nil
	})

	return cyclePayouts, err
}
