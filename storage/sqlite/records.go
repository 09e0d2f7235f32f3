package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
)

// RecordRepository implements storage.RecordRepository on SQLite.
type RecordRepository struct {
	db         *DB
	collection string
	closed     atomic.Bool
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRepository opens the SQLite file at path and binds a repository to
// collection. Closing the repository closes the database.
func NewRepository(path, collection string) (storage.RecordRepository, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &RecordRepository{db: db, collection: collection}, nil
}

// Collection returns the bound collection name.
func (r *RecordRepository) Collection() string {
	return r.collection
}

// Close closes the database.
func (r *RecordRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

func (r *RecordRepository) checkOpen() error {
	if r.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// EnsureCollection inserts the collection row unless it exists.
func (r *RecordRepository) EnsureCollection(ctx context.Context, dimensions int) (*core.Collection, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: collection dimensions must be positive, got %d", core.ErrInvalidConfig, dimensions)
	}
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	_, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		r.collection, dimensions, time.Now().UTC().UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return r.GetCollection(ctx)
}

// GetCollection returns the collection row.
func (r *RecordRepository) GetCollection(ctx context.Context) (*core.Collection, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var (
		collection core.Collection
		createdAt  int64
	)
	err := r.db.sqlDB.QueryRowContext(ctx,
		"SELECT name, dimensions, created_at FROM collections WHERE name = ?", r.collection,
	).Scan(&collection.Name, &collection.Dimensions, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: collection %s", storage.ErrNotFound, r.collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	collection.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &collection, nil
}

// Preflight checks the records table still carries a vector column and the
// collection accepts vectors of maxDimensions.
func (r *RecordRepository) Preflight(ctx context.Context, maxDimensions int) error {
	if err := r.checkOpen(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPrecondition, err)
	}
	ok, err := r.db.hasColumn("records", "vector")
	if err != nil {
		return fmt.Errorf("%w: inspect records table: %w", core.ErrPrecondition, err)
	}
	if !ok {
		return fmt.Errorf("%w: records table has no vector column", core.ErrPrecondition)
	}

	collection, err := r.GetCollection(ctx)
	return storage.PreflightCollection(r.collection, collection, err, maxDimensions)
}

// InsertRecord inserts one row; an existing id is reported as a duplicate.
func (r *RecordRepository) InsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	if err := r.checkOpen(); err != nil {
		return err
	}

	collection, err := r.GetCollection(ctx)
	if err := storage.CheckRecordFits(r.collection, collection, err, record); err != nil {
		return err
	}

	metadata, err := marshalMetadata(record.Metadata)
	if err != nil {
		return err
	}

	result, err := r.db.sqlDB.ExecContext(ctx,
		`INSERT INTO records (id, collection, chunk_index, document_id, text, vector, dimension, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		record.Id, r.collection, record.ChunkIndex, record.DocumentID, record.Text,
		vectorToBlob(record.Vector), len(record.Vector), record.CreatedAt.UnixMicro(), metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: record %s", storage.ErrDuplicateKey, record.Id)
	}
	return nil
}

const selectRecord = `SELECT id, chunk_index, document_id, text, vector, created_at, metadata FROM records`

// GetRecord retrieves a single record by Id.
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	row := r.db.sqlDB.QueryRowContext(ctx, selectRecord+" WHERE collection = ? AND id = ?", r.collection, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return record, err
}

// ListRecords returns the collection's records ordered by created_at.
func (r *RecordRepository) ListRecords(ctx context.Context) ([]*core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := r.db.sqlDB.QueryContext(ctx,
		selectRecord+" WHERE collection = ? ORDER BY created_at, rowid", r.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var results []*core.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

// CountRecords counts the collection's rows.
func (r *RecordRepository) CountRecords(ctx context.Context) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	var count int
	err := r.db.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ?", r.collection,
	).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.Record, error) {
	var (
		record    core.Record
		blob      []byte
		createdAt int64
		metadata  sql.NullString
	)
	if err := row.Scan(&record.Id, &record.ChunkIndex, &record.DocumentID, &record.Text,
		&blob, &createdAt, &metadata); err != nil {
		return nil, err
	}

	vector, err := blobToVector(blob)
	if err != nil {
		return nil, err
	}
	record.Vector = vector
	record.CreatedAt = time.UnixMicro(createdAt).UTC()

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", storage.ErrSerializationFailed, err)
		}
	}
	return &record, nil
}

func marshalMetadata(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	bs, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("%w: metadata: %w", storage.ErrSerializationFailed, err)
	}
	return sql.NullString{String: string(bs), Valid: true}, nil
}

// vectorToBlob packs a vector as little-endian float32 values.
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob size %d is not a multiple of 4", storage.ErrTruncatedData, len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
