// Package persistence defines the narrow blob-storage contract used by the
// Persistence Sidecar (spec.md §4.C11, §6): put/get opaque bytes under a
// job key. spec.md §1 places persistence/database layers out of core
// scope, so the interface stays intentionally thin rather than growing
// into a relational schema.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when key has never been Put.
var ErrNotFound = errors.New("persistence: key not found")

// Store is the sidecar contract: put an opaque blob under a key, and read
// it back. Implementations: pkg/persistence/memstore (default, in-process)
// and pkg/jobstore (Postgres-backed, via PersistenceDSN).
type Store interface {
	Put(ctx context.Context, key string, blob []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
