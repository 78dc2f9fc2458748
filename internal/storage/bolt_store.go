package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	eventBucket  = "proxy_events"
	keyTimeBytes = 8
)

// boltRecord is the stored form of an event.
type boltRecord struct {
	ExpiresAt int64             `json:"expires_at"`
	Event     domain.ProxyEvent `json:"event"`
}

// boltStore implements a Store backed by BoltDB. Keys are the big-endian
// event time followed by the event id, so cursor order is chronological.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	eventTTL        time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		eventTTL:        opts.EventTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Record stores evt until the configured TTL elapses.
func (b *boltStore) Record(evt domain.ProxyEvent) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = now.UTC()
	}

	value, err := json.Marshal(boltRecord{
		ExpiresAt: now.Add(b.eventTTL).UnixNano(),
		Event:     evt,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(eventBucket))
		if bucket == nil {
			return fmt.Errorf("event bucket missing")
		}
		return bucket.Put(eventKey(evt), value)
	})
}

// Recent returns up to limit unexpired events, newest first.
func (b *boltStore) Recent(limit int) ([]domain.ProxyEvent, error) {
	if b == nil || b.db == nil || limit <= 0 {
		return nil, nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, err
	}

	out := make([]domain.ProxyEvent, 0, limit)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(eventBucket))
		if bucket == nil {
			return fmt.Errorf("event bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(out) < limit; k, v = cursor.Prev() {
			rec, ok := decodeRecord(v)
			if !ok || rec.ExpiresAt <= now.UnixNano() {
				continue
			}
			out = append(out, rec.Event)
		}
		return nil
	})
	return out, err
}

// maybeCleanupExpired removes expired events on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(eventBucket))
		if bucket == nil {
			return fmt.Errorf("event bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			rec, ok := decodeRecord(v)
			if !ok || rec.ExpiresAt <= now.UnixNano() {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func eventKey(evt domain.ProxyEvent) []byte {
	key := make([]byte, keyTimeBytes, keyTimeBytes+len(evt.ID))
	binary.BigEndian.PutUint64(key, uint64(evt.OccurredAt.UnixNano()))
	return append(key, evt.ID...)
}

func decodeRecord(value []byte) (boltRecord, bool) {
	var rec boltRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return boltRecord{}, false
	}
	return rec, rec.ExpiresAt > 0
}
