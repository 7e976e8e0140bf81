// Package prefixed implements a store namespace: every key read or written
// through it is prepended with a fixed prefix, so that contracts sharing the
// same state cannot collide.
package prefixed

import (
	"go.ezyvote.org/ezyvote/core/store"
)

// Separator is written between the prefix and the key.
const Separator = '/'

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)
	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed Readable.
func NewReadable(prefix string, r store.Readable) store.Readable {
	p := []byte(prefix)
	return &readable{r, p}
}

// Get implements store.Readable.
func (s *readable) Get(key []byte) ([]byte, error) {
	return s.Readable.Get(NewPrefixedKey(s.prefix, key))
}

// Set implements store.Writable.
func (s *writable) Set(key []byte, value []byte) error {
	return s.Writable.Set(NewPrefixedKey(s.prefix, key), value)
}

// Delete implements store.Writable.
func (s *writable) Delete(key []byte) error {
	return s.Writable.Delete(NewPrefixedKey(s.prefix, key))
}

// NewPrefixedKey returns the key in the namespace of the prefix. Keys keep
// their natural order inside a namespace so that a bucket scan over a prefix
// stays possible.
func NewPrefixedKey(prefix, key []byte) []byte {
	k := make([]byte, 0, len(prefix)+1+len(key))
	k = append(k, prefix...)
	k = append(k, Separator)
	k = append(k, key...)

	return k
}
