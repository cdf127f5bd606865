package store

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const codesBucket = "charge_codes"

// BoltStorage persists charge codes in a BoltDB file. Keys are charge codes,
// values are the big-endian position of the code in the collection.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage opens (or creates) a BoltDB database at the given path and
// ensures the codes bucket exists.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if path == "" {
		p, err := defaultPath(DefaultBoltFileName)
		if err != nil {
			return nil, err
		}
		path = p
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt storage: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(codesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStorage{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// Load returns the stored codes in their saved order
func (s *BoltStorage) Load() ([]string, error) {
	type entry struct {
		code string
		pos  uint64
	}
	var entries []entry

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(codesBucket))
		return b.ForEach(func(k, v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("corrupt position for code %q", k)
			}
			entries = append(entries, entry{code: string(k), pos: binary.BigEndian.Uint64(v)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read charge codes: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.code
	}
	return codes, nil
}

// Save replaces the stored set with codes in a single transaction
func (s *BoltStorage) Save(codes []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(codesBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket([]byte(codesBucket))
		if err != nil {
			return err
		}
		for i, code := range codes {
			pos := make([]byte, 8)
			binary.BigEndian.PutUint64(pos, uint64(i))
			if err := b.Put([]byte(code), pos); err != nil {
				return err
			}
		}
		return nil
	})
}
