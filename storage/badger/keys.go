package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	collectionPrefix  = "col:"
	recordPrefix      = "rec:"
	recordOrderPrefix = "reco:"
)

// makeCollectionKey generates the key holding a collection descriptor.
func makeCollectionKey(collection string) []byte {
	return []byte(collectionPrefix + collection)
}

// makeRecordKey generates a key for a record by Id.
// Format: prefix:collection:id
func makeRecordKey(collection, id string) []byte {
	return []byte(recordPrefix + collection + ":" + id)
}

// makeRecordOrderPrefix generates the prefix shared by every order-index
// key of a collection.
func makeRecordOrderPrefix(collection string) []byte {
	return []byte(recordOrderPrefix + collection + ":")
}

// makeRecordOrderKey generates a composite key for the stored-order index.
// Format: prefix:collection:timestamp:id
func makeRecordOrderKey(collection string, createdAt time.Time, id string) []byte {
	prefix := makeRecordOrderPrefix(collection)
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}
