// internal/nvm/store.go
package nvm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/tamzrod/datastore/internal/datastore"
)

// record is the stored form of one datapoint.
type record struct {
	Bits    uint32 `msgpack:"v"`
	Updated int64  `msgpack:"t"` // unix nanoseconds
}

// Options tune the bbolt file.
type Options struct {
	Timeout time.Duration // file lock wait
	NoSync  bool          // tests only
}

// Store is the NVM medium: one bbolt bucket per datapoint type, keyed by
// big-endian datapoint index.
type Store struct {
	bdb *bbolt.DB
	now func() time.Time
}

// Open opens or creates the NVM file at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 5 * time.Second
	}
	bopt.NoSync = opt.NoSync

	bdb, err := bbolt.Open(path, 0600, bopt)
	if err != nil {
		return nil, fmt.Errorf("nvm: %w", err)
	}

	err = bdb.Update(func(btx *bbolt.Tx) error {
		for _, t := range datastore.Types() {
			if _, err := btx.CreateBucketIfNotExists(bucketName(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("nvm: %w", err)
	}

	return &Store{bdb: bdb, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

// LoadPersisted fills dst with the records of [first, first+len(dst)).
// found is true only when every record exists; dst is undefined otherwise.
func (s *Store) LoadPersisted(t datastore.Type, first uint32, dst []datastore.Value) (found bool, err error) {
	if !t.Valid() {
		return false, fmt.Errorf("nvm: %w: type %d", datastore.ErrInvalidArgument, t)
	}

	err = s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketName(t))
		if b == nil {
			return nil
		}
		for i := range dst {
			raw := b.Get(key(first + uint32(i)))
			if raw == nil {
				return nil
			}
			var rec record
			if err := msgpack.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("nvm: %s[%d]: %w", t, first+uint32(i), err)
			}
			dst[i] = datastore.Value(rec.Bits)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Save writes values at [first, first+len(values)) in one transaction.
func (s *Store) Save(t datastore.Type, first uint32, values []datastore.Value) error {
	if !t.Valid() {
		return fmt.Errorf("nvm: %w: type %d", datastore.ErrInvalidArgument, t)
	}
	if len(values) == 0 {
		return nil
	}

	updated := s.now().UnixNano()

	return s.bdb.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketName(t))
		if b == nil {
			return errors.New("nvm: bucket missing")
		}
		for i, v := range values {
			raw, err := msgpack.Marshal(record{Bits: uint32(v), Updated: updated})
			if err != nil {
				return err
			}
			if err := b.Put(key(first+uint32(i)), raw); err != nil {
				return fmt.Errorf("nvm: %s[%d]: %w", t, first+uint32(i), err)
			}
		}
		return nil
	})
}

// UpdatedAt returns when the datapoint was last saved.
func (s *Store) UpdatedAt(t datastore.Type, id uint32) (time.Time, bool, error) {
	var (
		at time.Time
		ok bool
	)
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketName(t))
		if b == nil {
			return nil
		}
		raw := b.Get(key(id))
		if raw == nil {
			return nil
		}
		var rec record
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			return err
		}
		at, ok = time.Unix(0, rec.Updated), true
		return nil
	})
	return at, ok, err
}

func bucketName(t datastore.Type) []byte {
	return []byte(t.String())
}

func key(id uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], id)
	return k[:]
}
