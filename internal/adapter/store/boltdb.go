package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"tourrag/internal/domain"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
)

// BoltStore keeps local records in a bbolt file keyed by record id. Record
// order is preserved through a zero-padded sequence prefix on the key.
type BoltStore struct {
	path   string
	schema SchemaInfo
}

// NewBoltStore creates a store whose saves are stamped with schema and whose
// loads are checked against it.
func NewBoltStore(path string, schema SchemaInfo) *BoltStore {
	if schema.Version == 0 {
		schema.Version = CurrentSchemaVersion
	}
	return &BoltStore{path: path, schema: schema}
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Load(ctx context.Context) ([]domain.LocalRecord, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, domain.ErrStoreNotFound)
		}
		return nil, err
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	info, err := readSchemaInfo(db)
	if err != nil {
		return nil, err
	}
	if err := s.schema.Check(info); err != nil {
		return nil, err
	}

	var records []domain.LocalRecord
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec domain.LocalRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupted record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	return records, nil
}

// Save replaces the records bucket in a single transaction.
func (s *BoltStore) Save(ctx context.Context, records []domain.LocalRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketRecords) != nil {
			if err := tx.DeleteBucket(bucketRecords); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}

		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("%08d:%s", i, rec.ID)
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}

		info := s.schema
		info.Records = len(records)
		info.SavedAt = time.Now().UTC()
		return writeSchemaInfo(tx, info)
	})
}

// Info returns the schema stamp of an existing store file.
func (s *BoltStore) Info() (*SchemaInfo, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, domain.ErrStoreNotFound)
		}
		return nil, err
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	info, err := readSchemaInfo(db)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
