// Package bolt persists the published-release index in a local bbolt
// database, so release immutability holds across pipeline runs.
package bolt

import (
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var releasesBucket = []byte("releases")

// Index records the artifact checksum set of every published version.
// Entries are only ever added, never rewritten.
type Index struct {
	db *bbolt.DB
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open release index %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(releasesBucket)
		return err
	})
	if err != nil {
		//nolint:errcheck // Best-effort close on error path
		db.Close()
		return nil, fmt.Errorf("failed to initialize release index: %w", err)
	}
	return &Index{db: db}, nil
}

// Get returns the published platform-to-checksum map for a version.
func (i *Index) Get(version string) (map[string]string, bool, error) {
	var sums map[string]string
	found := false
	err := i.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(releasesBucket).Get([]byte(version))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &sums)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read release %s from index: %w", version, err)
	}
	return sums, found, nil
}

// Put records the checksum set of a newly published version.
func (i *Index) Put(version string, sums map[string]string) error {
	data, err := json.Marshal(sums)
	if err != nil {
		return fmt.Errorf("failed to encode checksum set: %w", err)
	}
	err = i.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(releasesBucket).Put([]byte(version), data)
	})
	if err != nil {
		return fmt.Errorf("failed to record release %s: %w", version, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}
