// Package remote implements the client for the remote document store holding
// each user's synced items.
package remote

import (
	"context"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
)

// Client describes the per-user remote collection. Implementations must keep
// UpsertDocument idempotent: re-sending the same item with the same remote id
// must not create a second document.
type Client interface {
	// UpsertDocument creates or replaces the item's document and returns its
	// remote identifier. A new identifier is assigned when the item has none.
	UpsertDocument(ctx context.Context, item *models.Item) (string, error)

	// DeleteDocument removes the document. Deleting an absent document is
	// not an error.
	DeleteDocument(ctx context.Context, remoteID string) error

	// FetchAll returns every document for the user, ordered by last-modified
	// descending.
	FetchAll(ctx context.Context) ([]models.Item, error)
}
