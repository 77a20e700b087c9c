// Package store provides the shared object store used for query-image
// artifacts and page images, with presigned retrieval links for citation
// display.
//
// Artifacts are keyed by content hash, so concurrent identical writers
// converge on one stored object: the contract is write-once-per-hash,
// read-if-exists-else-write. Put never overwrites an existing object.
package store

import "context"

// ObjectStore is the narrow contract the pipeline consumes.
type ObjectStore interface {
	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Put stores data under key if no object exists there yet.
	// Putting to an existing key is a no-op, never an overwrite.
	Put(ctx context.Context, key string, data []byte) error

	// PresignedURL returns a time-limited retrieval URL for the object.
	PresignedURL(ctx context.Context, key string) (string, error)
}
