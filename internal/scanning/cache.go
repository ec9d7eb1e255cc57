package scanning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const scanBucketName = "scans"

// BoltCache is a Scanner decorator that remembers extraction results by the
// SHA-256 of the uploaded bytes, so scanning the same photo twice only calls
// the model once. It stores raw extraction output only.
type BoltCache struct {
	db      *bbolt.DB
	scanner Scanner
}

// NewBoltCache opens (or creates) the cache file at path in front of scanner
func NewBoltCache(path string, scanner Scanner) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scanBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCache{db: db, scanner: scanner}, nil
}

// ScanReceipt returns the cached result for identical image bytes, or scans
// and caches the result. Failures are never cached.
func (c *BoltCache) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	key := cacheKey(imageData)

	cached, err := c.get(key)
	if err != nil {
		slog.Warn("Failed to read scan cache", "key", key, "error", err)
	}
	if cached != nil {
		slog.Debug("Scan cache hit", "key", key)
		return cached, nil
	}

	data, err := c.scanner.ScanReceipt(ctx, imageData, contentType)
	if err != nil {
		return nil, err
	}

	if err := c.put(key, data); err != nil {
		slog.Warn("Failed to write scan cache", "key", key, "error", err)
	}
	return data, nil
}

// Close closes the cache file and the wrapped scanner
func (c *BoltCache) Close() error {
	scanErr := c.scanner.Close()
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("closing boltdb: %w", err)
	}
	return scanErr
}

func (c *BoltCache) get(key string) (*ReceiptData, error) {
	var data *ReceiptData
	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(scanBucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &data)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshaling scan: %w", err)
	}
	return data, nil
}

func (c *BoltCache) put(key string, data *ReceiptData) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		return tx.Bucket([]byte(scanBucketName)).Put([]byte(key), raw)
	})
}

func cacheKey(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return hex.EncodeToString(sum[:])
}
