package items

import (
	"context"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
)

// Repository describes CRUD, query, and tombstone operations for tracked
// items. Implementations are backed by the local SQLite database, which is the
// exclusive owner of persisted Item and Tombstone rows.
type Repository interface {
	// Upsert inserts the item or, when ID is set, updates the existing row.
	// The stored updated_at is refreshed from the item. Returns the local id.
	Upsert(ctx context.Context, item *models.Item) (int64, error)

	// GetAll returns all items ordered by creation time, newest first.
	GetAll(ctx context.Context) ([]models.Item, error)

	// GetByID returns a single item or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Item, error)

	// FindByNaturalKey looks an item up by (title, company, purchase date)
	// with NULL-safe date matching. Returns nil when no row matches.
	FindByNaturalKey(ctx context.Context, key models.NaturalKey) (*models.Item, error)

	// DeleteByID removes the row. Deleting an absent row is an error.
	DeleteByID(ctx context.Context, id int64) error

	// Query helpers for list views and the dashboard.
	DistinctCompanies(ctx context.Context) ([]string, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	CategoryStats(ctx context.Context) ([]models.CategoryCount, error)
	Stats(ctx context.Context, now time.Time) (*models.Stats, error)
	ExpiringSoon(ctx context.Context, now time.Time, window time.Duration) ([]models.Item, error)
	WithReminders(ctx context.Context) ([]models.Item, error)

	// Tombstone lifecycle.
	InsertTombstone(ctx context.Context, remoteID, userID string, deletedAt time.Time) error
	TombstoneRemoteIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	PurgeTombstonesOlderThan(ctx context.Context, userID string, cutoff time.Time) error
	CountTombstones(ctx context.Context, userID string) (int, error)
}
