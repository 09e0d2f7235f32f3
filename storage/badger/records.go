package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
)

// RecordRepository implements storage.RecordRepository for BadgerDB.
type RecordRepository struct {
	backend    *Backend
	collection string
	ownsDB     bool
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRepository opens (or creates) a BadgerDB directory at path and returns
// a repository bound to collection. Closing the repository closes the database.
func NewRepository(path, collection string) (storage.RecordRepository, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &RecordRepository{backend: backend, collection: collection, ownsDB: true}, nil
}

// NewRecordRepository binds a repository to collection on a shared backend.
// Closing the repository leaves the backend open.
func NewRecordRepository(backend *Backend, collection string) (*RecordRepository, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	return &RecordRepository{backend: backend, collection: collection}, nil
}

// Collection returns the bound collection name.
func (r *RecordRepository) Collection() string {
	return r.collection
}

// Close closes the backend if this repository opened it.
func (r *RecordRepository) Close() error {
	if r.ownsDB {
		return r.backend.Close()
	}
	return nil
}

// EnsureCollection creates the collection descriptor if it doesn't exist.
func (r *RecordRepository) EnsureCollection(ctx context.Context, dimensions int) (*core.Collection, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: collection dimensions must be positive, got %d", core.ErrInvalidConfig, dimensions)
	}

	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := r.readCollection(tx)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		result = &core.Collection{
			Name:       r.collection,
			Dimensions: dimensions,
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		if err := tx.Set(makeCollectionKey(r.collection), storage.MarshalCollection(result)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCollection returns the collection descriptor.
func (r *RecordRepository) GetCollection(ctx context.Context) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCollection(tx)
		return err
	}, false)
	return result, err
}

// Preflight checks that the collection exists and is wide enough.
func (r *RecordRepository) Preflight(ctx context.Context, maxDimensions int) error {
	collection, err := r.GetCollection(ctx)
	return storage.PreflightCollection(r.collection, collection, err, maxDimensions)
}

// InsertRecord writes a record and its stored-order index entry.
func (r *RecordRepository) InsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		collection, err := r.readCollection(tx)
		if err := storage.CheckRecordFits(r.collection, collection, err, record); err != nil {
			return err
		}

		key := makeRecordKey(r.collection, record.Id)
		_, err = tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: record %s", storage.ErrDuplicateKey, record.Id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
			return err
		}
		orderKey := makeRecordOrderKey(r.collection, record.CreatedAt, record.Id)
		if err := tx.Set(orderKey, []byte(record.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent insert of the same id won the race.
		return fmt.Errorf("%w: record %s: %w", storage.ErrDuplicateKey, record.Id, err)
	}
	return err
}

// GetRecord retrieves a single record by Id.
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	var result *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readRecord(tx, makeRecordKey(r.collection, id))
		return err
	}, false)
	return result, err
}

// ListRecords walks the stored-order index and returns records oldest first.
func (r *RecordRepository) ListRecords(ctx context.Context) ([]*core.Record, error) {
	var results []*core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordOrderPrefix(r.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := r.readRecord(tx, makeRecordKey(r.collection, string(id)))
			if err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountRecords counts index entries without loading values.
func (r *RecordRepository) CountRecords(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordOrderPrefix(r.collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func (r *RecordRepository) readCollection(tx *badger.Txn) (*core.Collection, error) {
	item, err := tx.Get(makeCollectionKey(r.collection))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: collection %s", storage.ErrNotFound, r.collection)
	}
	if err != nil {
		return nil, err
	}
	var collection *core.Collection
	err = item.Value(func(val []byte) error {
		collection, err = storage.UnmarshalCollection(val)
		return err
	})
	return collection, err
}

func (r *RecordRepository) readRecord(tx *badger.Txn, key []byte) (*core.Record, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var record *core.Record
	err = item.Value(func(val []byte) error {
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	return record, err
}
