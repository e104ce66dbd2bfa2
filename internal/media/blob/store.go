// Package blob provides the client for the key-addressed blob store that
// backs all uploaded media. The Store interface abstracts the backend; the
// Client layered on top adds thumbnail derivation, error classification, and
// idempotent delete semantics.
package blob

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors reported by Store implementations and classified by Client.
var (
	// ErrNotFound means the key holds no blob. Delete treats this as success.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidKey means the key is malformed and the backend rejected it.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrQuotaExceeded means the backend rejected the write for size or space.
	ErrQuotaExceeded = errors.New("blob store quota exceeded")

	// ErrStoreUnavailable means the backend could not be reached.
	ErrStoreUnavailable = errors.New("blob store unavailable")
)

// Store is the backend interface for a key-addressed object store. Blobs are
// publicly readable at PublicURL(key) immediately after a successful Put.
// Implementations must be safe for unlimited concurrent callers.
type Store interface {
	// Put streams r to the store under key. size must be the exact byte count.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes the blob at key. Returns ErrNotFound if no blob exists.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the browser-accessible URL for key. No I/O.
	PublicURL(key string) string
}

// DeleteOutcome is the result of an idempotent delete.
type DeleteOutcome int

const (
	// OutcomeDeleted means the blob existed and was removed.
	OutcomeDeleted DeleteOutcome = iota

	// OutcomeAlreadyAbsent means the key held no blob. Not an error: the
	// reconciler may retry the same key after a crash.
	OutcomeAlreadyAbsent

	// OutcomeFailed means the backend returned an error other than not-found.
	OutcomeFailed
)

// String returns the outcome name for logs and reports.
func (o DeleteOutcome) String() string {
	switch o {
	case OutcomeDeleted:
		return "deleted"
	case OutcomeAlreadyAbsent:
		return "already_absent"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
