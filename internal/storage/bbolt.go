package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/developingchet/counterd/internal/counter"
)

// Compile-time proof that BoltStore satisfies the Store interface.
var _ Store = (*BoltStore)(nil)

var bucketCounters = []byte("counters")

// BoltStore is an ACID bbolt-backed implementation of Store. bbolt allows a
// single writer at a time, so each Update is serialised against the others.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path and initialises the
// counters bucket.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCounters)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: init buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Create(_ context.Context, name string) (int64, error) {
	key := []byte(name)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCounters)
		if b.Get(key) != nil {
			return counter.ErrConflict
		}
		return b.Put(key, encodeValue(0))
	})
	return 0, err
}

func (s *BoltStore) Increment(_ context.Context, name string) (int64, error) {
	key := []byte(name)
	var v int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCounters)
		data := b.Get(key)
		if data == nil {
			return counter.ErrNotFound
		}
		v = decodeValue(data) + 1
		return b.Put(key, encodeValue(v))
	})
	return v, err
}

func (s *BoltStore) Get(_ context.Context, name string) (int64, error) {
	var v int64
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCounters).Get([]byte(name))
		if data == nil {
			return counter.ErrNotFound
		}
		v = decodeValue(data)
		return nil
	})
	return v, err
}

func (s *BoltStore) Delete(_ context.Context, name string) error {
	key := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCounters)
		if b.Get(key) == nil {
			return counter.ErrNotFound
		}
		return b.Delete(key)
	})
}

func (s *BoltStore) Len(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketCounters).Stats().KeyN
		return nil
	})
	return n, err
}

// Ping opens a read transaction to confirm the database is usable.
func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketCounters) == nil {
			return fmt.Errorf("storage: bucket %s missing", bucketCounters)
		}
		return nil
	})
}

// DBPath returns the filesystem path of the database file.
func (s *BoltStore) DBPath() string { return s.db.Path() }

// Close cleanly closes the underlying bbolt database.
func (s *BoltStore) Close() error { return s.db.Close() }

func encodeValue(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// decodeValue treats short or corrupt records as zero.
func decodeValue(data []byte) int64 {
	if len(data) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(data))
}
