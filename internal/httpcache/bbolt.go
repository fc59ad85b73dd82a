package httpcache

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bboltBucketName = []byte("cache")

type BBoltStorage struct {
	db *bbolt.DB
}

func NewBBoltStorage(db *bbolt.DB) *BBoltStorage {
	return &BBoltStorage{db: db}
}

func (s *BBoltStorage) Fetch(ctx context.Context, key string) (*Entry, error) {
	var d []byte

	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bboltBucketName)
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(key)); v != nil {
			d = append([]byte(nil), v...)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: %w", err)
	}

	if d == nil {
		return nil, nil
	}

	e, err := decodeEntry(d)
	if err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: could not decode entry: %w", err)
	}

	return e, nil
}

// Save ignores maxAge; stale entries are overwritten on the next miss.
func (s *BBoltStorage) Save(ctx context.Context, key string, e *Entry, maxAge time.Duration) error {
	d, err := e.encode()
	if err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: could not encode entry: %w", err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bboltBucketName)
		if err != nil {
			return err
		}

		return b.Put([]byte(key), d)
	}); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: %w", err)
	}

	return nil
}
