// Package mapcache persists reduction maps between sweeps so repeated
// runs over the same levels skip the homomorphism search.
package mapcache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"mfmodell/algebra"
)

var bucketMaps = []byte("reduction_maps")

// Bolt is a bbolt-backed reduction.MapCache.
type Bolt struct {
	db *bbolt.DB
}

// Open opens or creates the cache file at path.
func Open(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("mapcache: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMaps)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func key(label string, ell uint64) []byte {
	return []byte(fmt.Sprintf("%s@%d", label, ell))
}

// Get returns the cached maps for (label, ℓ). A stored empty list is a
// hit: the form is known to have no reduction at ℓ.
func (c *Bolt) Get(label string, ell uint64) ([]algebra.ReductionMap, bool, error) {
	var (
		maps []algebra.ReductionMap
		ok   bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMaps).Get(key(label, ell))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &maps)
	})
	if err != nil {
		return nil, false, fmt.Errorf("mapcache: decode %s@%d: %w", label, ell, err)
	}
	return maps, ok, nil
}

// Put stores maps for (label, ℓ), replacing any previous entry.
func (c *Bolt) Put(label string, ell uint64, maps []algebra.ReductionMap) error {
	if maps == nil {
		maps = []algebra.ReductionMap{}
	}
	data, err := json.Marshal(maps)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMaps).Put(key(label, ell), data)
	})
}

// Len returns the number of cached entries.
func (c *Bolt) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketMaps).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *Bolt) Close() error {
	return c.db.Close()
}
