// Package bolt implements storage.RecordRepository on a bbolt file.
//
// Layout: a top-level "collections" bucket maps collection names to their
// MUS-encoded descriptors; under the "records" bucket every collection owns
// a nested bucket holding "byid" (id → record) and "order"
// (created_at micros + id → id) sub-buckets.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
	"go.etcd.io/bbolt"
)

var (
	bucketCollections = []byte("collections")
	bucketRecords     = []byte("records")
	bucketByID        = []byte("byid")
	bucketOrder       = []byte("order")
)

// RecordRepository implements storage.RecordRepository for bbolt.
type RecordRepository struct {
	db         *bbolt.DB
	collection string
	closed     atomic.Bool
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRepository opens the bbolt file at path and binds a repository to
// collection. Closing the repository closes the file.
func NewRepository(path, collection string) (storage.RecordRepository, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCollections, bucketRecords} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RecordRepository{db: db, collection: collection}, nil
}

// Collection returns the bound collection name.
func (r *RecordRepository) Collection() string {
	return r.collection
}

// Close closes the bolt file.
func (r *RecordRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

func (r *RecordRepository) view(fn func(tx *bbolt.Tx) error) error {
	if r.closed.Load() {
		return storage.ErrStorageClosed
	}
	return r.db.View(fn)
}

func (r *RecordRepository) update(fn func(tx *bbolt.Tx) error) error {
	if r.closed.Load() {
		return storage.ErrStorageClosed
	}
	return r.db.Update(fn)
}

// EnsureCollection stores the descriptor unless one exists already.
func (r *RecordRepository) EnsureCollection(ctx context.Context, dimensions int) (*core.Collection, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: collection dimensions must be positive, got %d", core.ErrInvalidConfig, dimensions)
	}

	var result *core.Collection
	err := r.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCollections)
		if data := b.Get([]byte(r.collection)); data != nil {
			var err error
			result, err = storage.UnmarshalCollection(data)
			return err
		}

		result = &core.Collection{
			Name:       r.collection,
			Dimensions: dimensions,
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		if _, err := r.recordBuckets(tx); err != nil {
			return err
		}
		return b.Put([]byte(r.collection), storage.MarshalCollection(result))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCollection returns the collection descriptor.
func (r *RecordRepository) GetCollection(ctx context.Context) (*core.Collection, error) {
	var result *core.Collection
	err := r.view(func(tx *bbolt.Tx) error {
		var err error
		result, err = r.readCollection(tx)
		return err
	})
	return result, err
}

func (r *RecordRepository) readCollection(tx *bbolt.Tx) (*core.Collection, error) {
	data := tx.Bucket(bucketCollections).Get([]byte(r.collection))
	if data == nil {
		return nil, fmt.Errorf("%w: collection %s", storage.ErrNotFound, r.collection)
	}
	return storage.UnmarshalCollection(data)
}

// Preflight checks that the collection exists and is wide enough.
func (r *RecordRepository) Preflight(ctx context.Context, maxDimensions int) error {
	collection, err := r.GetCollection(ctx)
	return storage.PreflightCollection(r.collection, collection, err, maxDimensions)
}

// InsertRecord writes the record and its order entry in one bolt transaction.
func (r *RecordRepository) InsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.update(func(tx *bbolt.Tx) error {
		collection, err := r.readCollection(tx)
		if err := storage.CheckRecordFits(r.collection, collection, err, record); err != nil {
			return err
		}

		b, err := r.recordBuckets(tx)
		if err != nil {
			return err
		}
		byID := b.Bucket(bucketByID)
		if byID.Get([]byte(record.Id)) != nil {
			return fmt.Errorf("%w: record %s", storage.ErrDuplicateKey, record.Id)
		}
		if err := byID.Put([]byte(record.Id), storage.MarshalRecord(record)); err != nil {
			return err
		}
		return b.Bucket(bucketOrder).Put(orderKey(record.CreatedAt, record.Id), []byte(record.Id))
	})
}

// GetRecord retrieves a single record by Id.
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	var result *core.Record
	err := r.view(func(tx *bbolt.Tx) error {
		b := r.existingRecordBuckets(tx)
		if b == nil {
			return storage.ErrNotFound
		}
		data := b.Bucket(bucketByID).Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		var err error
		result, err = storage.UnmarshalRecord(data)
		return err
	})
	return result, err
}

// ListRecords walks the order bucket, oldest first.
func (r *RecordRepository) ListRecords(ctx context.Context) ([]*core.Record, error) {
	var results []*core.Record
	err := r.view(func(tx *bbolt.Tx) error {
		b := r.existingRecordBuckets(tx)
		if b == nil {
			return nil
		}
		byID := b.Bucket(bucketByID)
		return b.Bucket(bucketOrder).ForEach(func(_, id []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data := byID.Get(id)
			if data == nil {
				return fmt.Errorf("%w: order entry for missing record %s", storage.ErrNotFound, id)
			}
			record, err := storage.UnmarshalRecord(data)
			if err != nil {
				return err
			}
			results = append(results, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountRecords reads the key count from bucket stats.
func (r *RecordRepository) CountRecords(ctx context.Context) (int, error) {
	count := 0
	err := r.view(func(tx *bbolt.Tx) error {
		if b := r.existingRecordBuckets(tx); b != nil {
			count = b.Bucket(bucketByID).Stats().KeyN
		}
		return nil
	})
	return count, err
}

// recordBuckets returns the collection's record bucket, creating it and its
// sub-buckets on first use.
func (r *RecordRepository) recordBuckets(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b, err := tx.Bucket(bucketRecords).CreateBucketIfNotExists([]byte(r.collection))
	if err != nil {
		return nil, err
	}
	for _, name := range [][]byte{bucketByID, bucketOrder} {
		if _, err := b.CreateBucketIfNotExists(name); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (r *RecordRepository) existingRecordBuckets(tx *bbolt.Tx) *bbolt.Bucket {
	return tx.Bucket(bucketRecords).Bucket([]byte(r.collection))
}

func orderKey(createdAt time.Time, id string) []byte {
	buf := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(buf, uint64(createdAt.UnixMicro()))
	copy(buf[8:], id)
	return buf
}
