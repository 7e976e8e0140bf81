// Package kv defines the abstraction for a key/value database.
//
// The package also implements a default database implementation that is using
// bbolt as the engine (https://github.com/etcd-io/bbolt). A writable
// transaction is applied entirely or not at all, which is what the ordering
// service relies on to abort a rejected transaction.
package kv

import "go.ezyvote.org/ezyvote/core/store"

// Bucket is a general interface to operate on a database bucket.
type Bucket interface {
	// Get reads the key from the bucket and returns the value, or nil if the
	// key does not exist.
	Get(key []byte) []byte

	// Set assigns the value to the provided key.
	Set(key, value []byte) error

	// Delete deletes the key from the bucket.
	Delete(key []byte) error

	// ForEach iterates over all the items in the bucket in a unspecified order.
	// The iteration stops when the callback returns an error.
	ForEach(func(k, v []byte) error) error

	// Scan iterates over every key that matches the prefix in an order
	// determined by the implementation. The iteration stops when the callback
	// returns an error.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx allows one to perform read-only atomic operations on the database.
type ReadableTx interface {
	// GetBucket returns the bucket of the given name if it exists, otherwise it
	// returns nil.
	GetBucket(name []byte) Bucket
}

// WritableTx allows one to perform atomic operations on the database.
type WritableTx interface {
	store.Transaction

	ReadableTx

	// GetBucketOrCreate returns the bucket of the given name if it exists, or
	// it creates it.
	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is a general interface to operate over a key/value database.
type DB interface {
	// View executes the provided read-only transaction in the context of the
	// database.
	View(fn func(ReadableTx) error) error

	// Update executes the provided writable transaction in the context of the
	// database. Returning an error from the callback rolls back every change.
	Update(fn func(WritableTx) error) error

	// Close closes the database and free the resources.
	Close() error
}

// NewSnapshot adapts a bucket into a store snapshot. Writes go directly to the
// bucket, and therefore belong to the enclosing database transaction.
func NewSnapshot(b Bucket) store.Snapshot {
	return bucketSnapshot{bucket: b}
}

// NewReadable adapts a bucket, possibly nil when it has not been created yet,
// into a readable store.
func NewReadable(b Bucket) store.Readable {
	return bucketSnapshot{bucket: b}
}

// bucketSnapshot is the adapter of a bucket to the store interfaces.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// Get implements store.Readable. It returns a copy of the value, as the bucket
// memory is only valid during the transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	return s.bucket.Delete(key)
}
