package kvdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/logger"
	bolt "go.etcd.io/bbolt"
)

type BoltDB struct {
	store  *bolt.DB
	logger logger.Logger
}

var _ DB = (*BoltDB)(nil)

func New(logger logger.Logger, cfg *config.Config) (*BoltDB, error) {
	return Open(logger, cfg.GetKVDBPath())
}

func Open(logger logger.Logger, kvDBPath string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(kvDBPath), 0755); err != nil {
		logger.Error("failed to create key-value database directory", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to create key-value database directory: %w", err)
	}

	store, err := bolt.Open(kvDBPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		logger.Error("failed to open database", "err", err.Error(), "path", kvDBPath)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	boltDB := &BoltDB{
		store:  store,
		logger: logger,
	}

	if err := boltDB.initBuckets(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return boltDB, nil
}

func (b *BoltDB) initBuckets() error {
	return b.store.Update(func(tx *bolt.Tx) error {
		for _, bucket := range snapshotBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				b.logger.Error("failed to create bucket", "bucket", bucket, "err", err.Error())
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (b *BoltDB) Get(bucketName string, key string) ([]byte, error) {
	if key == "" {
		b.logger.Error("key cannot be empty", "bucket", bucketName)
		return nil, &InvalidKeyError{
			Key:    key,
			Reason: "key cannot be empty",
		}
	}

	var value []byte
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return &NotFoundError{Bucket: bucketName, Key: key}
		}

		v := bucket.Get([]byte(key))
		if v == nil {
			return &NotFoundError{Bucket: bucketName, Key: key}
		}

		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// GetAll returns a copy of every key/value pair in the bucket.
func (b *BoltDB) GetAll(bucketName string) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	err := b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			value := make([]byte, len(v))
			copy(value, v)
			entries[string(k)] = value
			return nil
		})
	})
	if err != nil {
		b.logger.Error("failed to read bucket", "bucket", bucketName, "err", err.Error())
		return nil, fmt.Errorf("failed to read bucket %s: %w", bucketName, err)
	}

	return entries, nil
}

// ReplaceBuckets drops and rewrites every given bucket inside one transaction,
// so readers of the file see either the old or the new contents.
func (b *BoltDB) ReplaceBuckets(contents map[string]map[string][]byte) error {
	return b.store.Update(func(tx *bolt.Tx) error {
		for bucketName, entries := range contents {
			if tx.Bucket([]byte(bucketName)) != nil {
				if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
					b.logger.Error("failed to drop bucket", "bucket", bucketName, "err", err.Error())
					return fmt.Errorf("failed to drop bucket %s: %w", bucketName, err)
				}
			}

			bucket, err := tx.CreateBucket([]byte(bucketName))
			if err != nil {
				b.logger.Error("failed to create bucket", "bucket", bucketName, "err", err.Error())
				return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
			}

			for key, value := range entries {
				if key == "" {
					return &InvalidKeyError{Key: key, Reason: "key cannot be empty"}
				}
				if err := bucket.Put([]byte(key), value); err != nil {
					b.logger.Error("failed to set key", "bucket", bucketName, "key", key, "err", err.Error())
					return fmt.Errorf("failed to set key %s: %w", key, err)
				}
			}
		}
		return nil
	})
}

func (b *BoltDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
