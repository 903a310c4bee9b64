// Package blob implements attachment storage in a per-user folder of an
// S3-compatible object store.
package blob

import "context"

// Client moves image attachments between local disk and remote blob storage.
// The engine treats this as an optional capability: a build without blob
// storage simply keeps attachments local.
type Client interface {
	// Upload stores the file at localPath remotely and returns a stable
	// download link and the blob identifier.
	Upload(ctx context.Context, localPath string) (link string, blobID string, err error)

	// Download fetches a blob into the local attachments directory under
	// destName and returns the resulting local path.
	Download(ctx context.Context, blobID, destName string) (string, error)

	// Delete removes a blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, blobID string) error
}
