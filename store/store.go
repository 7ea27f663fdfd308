// Package store defines the backing storage contract for staged content.
//
// A Store maps resource identifiers to opaque byte blobs. Implementations
// must be byte-for-byte transparent: the bytes returned by Get are exactly
// the bytes previously written through Put for the same identifier, with no
// added metadata and no mutation. An identifier is associated with at most
// one blob for its lifetime; superseding content always happens under a new
// identifier.
package store

import (
	"context"
	"io"
)

// Store provides identifier-keyed storage for staged blobs.
//
// Reclaim operations (Remove, RemoveAll) are best-effort: a failed physical
// delete is reported but never escalated, and the affected entry stays
// mapped so a later attempt can retry.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put copies all bytes from src into a new blob mapped under id.
	// On any copy failure the partial blob is discarded and id is left
	// unmapped, so a subsequent Get(id) misses rather than serving a
	// truncated blob. Put does not close src.
	Put(ctx context.Context, id string, src io.Reader) error

	// Get opens the blob mapped under id for reading.
	// Returns nil, false if id is unmapped or the blob has disappeared.
	// The caller owns the returned reader and must close it.
	Get(id string) (io.ReadCloser, bool)

	// Remove deletes the blob mapped under id and reports whether the
	// physical delete succeeded. An unmapped id counts as success
	// (nothing to reclaim). On failure the mapping is retained.
	Remove(id string) bool

	// RemoveAll deletes every currently mapped blob. Failures are
	// independent: one undeletable blob does not abort the sweep.
	RemoveAll()
}
