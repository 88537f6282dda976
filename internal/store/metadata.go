// Package store persists the bookkeeping of one local index in a BoltDB
// file: the live segment list, per-segment deletion bitmaps, the commit
// epoch and the settings the index was created with.
package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/boltdb/bolt"
	"github.com/vmihailenco/msgpack/v5"
)

// FileName is the metadata file inside an index directory.
const FileName = "meta.db"

var (
	bucketSegments  = []byte("segments")
	bucketDeletions = []byte("deletions")
	bucketMeta      = []byte("meta")

	keySegmentList = []byte("list")
	keyEpoch       = []byte("epoch")
	keySettings    = []byte("settings")
)

// Settings are written once, when the index is created.
type Settings struct {
	Scoring string    `msgpack:"scoring"`
	Created time.Time `msgpack:"created"`
}

type Metadata struct {
	db *bolt.DB
}

// Open opens or creates the metadata file in dir.
func Open(dir string) (*Metadata, error) {
	db, err := bolt.Open(filepath.Join(dir, FileName), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSegments, bucketDeletions, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init metadata: %w", err)
	}
	return &Metadata{db: db}, nil
}

func (m *Metadata) Close() error { return m.db.Close() }

// Segments returns the live segment IDs in commit order.
func (m *Metadata) Segments() (ids []string, err error) {
	err = m.db.View(func(tx *bolt.Tx) error {
		ids, err = readSegments(tx)
		return err
	})
	return ids, err
}

// Deletions returns the deleted docNums of a segment. A segment without
// deletions yields an empty bitmap.
func (m *Metadata) Deletions(segmentID string) (bm *roaring.Bitmap, err error) {
	err = m.db.View(func(tx *bolt.Tx) error {
		bm, err = readDeletions(tx, segmentID)
		return err
	})
	return bm, err
}

// Epoch counts committed changes; it is 0 for a new index.
func (m *Metadata) Epoch() (epoch uint64, err error) {
	err = m.db.View(func(tx *bolt.Tx) error {
		epoch = readEpoch(tx)
		return nil
	})
	return epoch, err
}

// Settings returns the stored settings; ok is false for a new index.
func (m *Metadata) Settings() (s Settings, ok bool, err error) {
	err = m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySettings)
		if data == nil {
			return nil
		}
		ok = true
		return msgpack.Unmarshal(data, &s)
	})
	return s, ok, err
}

// Update runs fn in one write transaction; nothing is stored if fn fails.
func (m *Metadata) Update(fn func(*Tx) error) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Tx is a write transaction.
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) Segments() ([]string, error) { return readSegments(t.tx) }

func (t *Tx) PutSegments(ids []string) error {
	data, err := msgpack.Marshal(ids)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketSegments).Put(keySegmentList, data)
}

func (t *Tx) Deletions(segmentID string) (*roaring.Bitmap, error) {
	return readDeletions(t.tx, segmentID)
}

// AddDeletions merges bm into the stored deletions of a segment.
func (t *Tx) AddDeletions(segmentID string, bm *roaring.Bitmap) error {
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	stored, err := readDeletions(t.tx, segmentID)
	if err != nil {
		return err
	}
	stored.Or(bm)

	var buf bytes.Buffer
	if _, err := stored.WriteTo(&buf); err != nil {
		return err
	}
	return t.tx.Bucket(bucketDeletions).Put([]byte(segmentID), buf.Bytes())
}

// DropDeletions forgets the deletions of a segment that no longer exists.
func (t *Tx) DropDeletions(segmentID string) error {
	return t.tx.Bucket(bucketDeletions).Delete([]byte(segmentID))
}

// NextEpoch increments the epoch and returns the new value.
func (t *Tx) NextEpoch() (uint64, error) {
	epoch := readEpoch(t.tx) + 1
	return epoch, t.tx.Bucket(bucketMeta).Put(keyEpoch, binary.BigEndian.AppendUint64(nil, epoch))
}

func (t *Tx) PutSettings(s Settings) error {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketMeta).Put(keySettings, data)
}

func readSegments(tx *bolt.Tx) ([]string, error) {
	data := tx.Bucket(bucketSegments).Get(keySegmentList)
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := msgpack.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("segment list: %w", err)
	}
	return ids, nil
}

func readDeletions(tx *bolt.Tx, segmentID string) (*roaring.Bitmap, error) {
	bm := roaring.New()
	data := tx.Bucket(bucketDeletions).Get([]byte(segmentID))
	if data == nil {
		return bm, nil
	}
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("deletions of %s: %w", segmentID, err)
	}
	return bm, nil
}

func readEpoch(tx *bolt.Tx) uint64 {
	data := tx.Bucket(bucketMeta).Get(keyEpoch)
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
