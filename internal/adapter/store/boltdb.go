package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
)

var (
	bucketReports = []byte("reports")
	bucketMeta    = []byte("meta")
)

// BoltStore persists the last report of each session in a bbolt file.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	// A second process holding the file (serve + show) fails fast instead of blocking.
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketReports, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Put(sessionID string, report domain.Report) error {
	stored := domain.StoredReport{
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
		Report:    report,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketReports).Put([]byte(sessionID), data)
	})
}

func (s *BoltStore) Get(sessionID string) (domain.StoredReport, bool, error) {
	var (
		stored domain.StoredReport
		found  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketReports).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &stored)
	})
	if err != nil {
		return domain.StoredReport{}, false, fmt.Errorf("failed to read report for %s: %w", sessionID, err)
	}
	return stored, found, nil
}

func (s *BoltStore) Delete(sessionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketReports).Delete([]byte(sessionID))
	})
}

// Sweep deletes every report created before cutoff. Records that fail to
// decode are removed too.
func (s *BoltStore) Sweep(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReports)

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var meta struct {
				CreatedAt time.Time `json:"created_at"`
			}
			if err := json.Unmarshal(v, &meta); err != nil || meta.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Count returns the number of stored reports.
func (s *BoltStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketReports).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
