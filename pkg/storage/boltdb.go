package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketJournal = []byte("journal")
)

// lockTimeout bounds the wait for the file lock held by another process
const lockTimeout = 3 * time.Second

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) <dataDir>/tableside.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tableside.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s (is another tableside process using it?): %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketJournal); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketJournal, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BoltStore) Put(key string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		return b.Delete([]byte(key))
	})
}
