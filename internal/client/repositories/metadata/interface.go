// Package metadata persists small key/value state for the client, such as the
// time of the last successful reconciliation.
package metadata

import "context"

// Keys used by the sync engine.
const (
	KeyLastSyncTime = "last_sync_time"
)

type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
