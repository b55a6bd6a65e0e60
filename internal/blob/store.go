// Package blob provides the single-key blob storage the rest of the
// application persists into. It is the localStorage/Cache equivalent of the
// original PWA: values are opaque byte slices replaced atomically per key.
package blob

import "errors"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("blob: key not found")

// Store is a flat key-value store with atomic single-key replace.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Keys returns all keys starting with prefix, in unspecified order.
	Keys(prefix string) ([]string, error)
}
