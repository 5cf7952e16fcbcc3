package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	PAYOUTS_BUCKET = "payouts"
)

// Storage keeps a queryable history of cycle summaries and executed
// payments. It backs the web API; the payment-log marker files, not this
// DB, remain the idempotency source of truth.
type Storage struct {
	db *bolt.DB
}

func InitStorage(dataDir, network string) (*Storage, error) {

	dbFile := filepath.Join(dataDir, fmt.Sprintf("baconpay-%s.db", network))

	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open database %s", dbFile)
	}

	// Ensure buckets exist
	err = db.Update(func(tx *bolt.Tx) error {

		if _, err := tx.CreateBucketIfNotExists([]byte(PAYOUTS_BUCKET)); err != nil {
			return errors.Wrap(err, "Cannot create payouts bucket")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	log.Info("Database closed")
}

// itob returns an 8-byte big endian representation of v.
func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))

	return b
}

func btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
