// Package sync reconciles the local item store with the remote document and
// blob stores. The engine owns no persistent state of its own: it reads and
// writes through the repositories and exposes a status value for the UI.
package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/blob"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/remote"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/repositories/items"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/logging"
	"github.com/dmitrijs2005/receiptkeeper/internal/netx"
)

// Result aggregates the outcome of one full reconciliation.
type Result struct {
	Uploaded   int
	Downloaded int
	Errors     []string
}

// Options carries the engine's collaborators. Blobs may be nil, in which case
// attachments stay on local disk and are never migrated.
type Options struct {
	Items    items.Repository
	Metadata metadata.Repository
	Remote   remote.Client
	Blobs    blob.Client
	Checker  netx.Checker
	Logger   logging.Logger
	UserID   string

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine performs item-level and full bidirectional synchronization.
type Engine struct {
	items    items.Repository
	meta     metadata.Repository
	remote   remote.Client
	blobs    blob.Client
	checker  netx.Checker
	log      logging.Logger
	userID   string
	now      func() time.Time
	status   *statusCell
	inFlight atomic.Bool
}

func NewEngine(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		items:   opts.Items,
		meta:    opts.Metadata,
		remote:  opts.Remote,
		blobs:   opts.Blobs,
		checker: opts.Checker,
		log:     opts.Logger.With("component", "sync"),
		userID:  opts.UserID,
		now:     now,
		status:  newStatusCell(),
	}
}

// Status returns the state of the last full reconciliation.
func (e *Engine) Status() Status {
	return e.status.get()
}

// Subscribe registers a status listener; the channel carries the current
// value immediately and every later change. Call the returned func to stop.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	return e.status.subscribe()
}

// LastSyncTime returns the persisted time of the last successful
// reconciliation, or nil if none has completed yet.
func (e *Engine) LastSyncTime(ctx context.Context) (*time.Time, error) {
	v, err := e.meta.Get(ctx, metadata.KeyLastSyncTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
	}
	if v == nil {
		return nil, nil
	}
	ms, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt %s value: %w", metadata.KeyLastSyncTime, err)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// SyncItem uploads a single item, migrating a local attachment to blob
// storage first. The item's RemoteID, ImageRef and BlobID are updated in
// place and persisted locally. This is the path for immediate user-initiated
// saves, so failures are returned rather than accumulated.
func (e *Engine) SyncItem(ctx context.Context, item *models.Item) (string, error) {
	if !e.checker.Online(ctx) {
		return "", common.ErrNoConnectivity
	}
	if err := e.pushItem(ctx, item); err != nil {
		return "", err
	}
	return item.RemoteID, nil
}

// SyncAll performs a full bidirectional reconciliation: upload every local
// item, merge every remote document, sweep expired tombstones. Per-item
// failures are collected into the result; only a connectivity failure, a
// local-store failure while listing, or a concurrent invocation abort the
// run. Re-running after a partial run converges to the same end state.
func (e *Engine) SyncAll(ctx context.Context) (*Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer e.inFlight.Store(false)

	if !e.checker.Online(ctx) {
		e.status.set(StateError, common.ErrNoConnectivity.Error())
		return nil, common.ErrNoConnectivity
	}

	e.status.set(StateSyncing, "")
	res := &Result{}

	if err := e.uploadPhase(ctx, res); err != nil {
		e.status.set(StateError, err.Error())
		return nil, err
	}

	e.downloadPhase(ctx, res)
	e.sweepTombstones(ctx)

	if res.Uploaded == 0 && res.Downloaded == 0 && len(res.Errors) > 0 {
		e.status.set(StateError, strings.Join(res.Errors, "; "))
		return res, nil
	}

	finished := e.now().UTC()
	if err := e.meta.Set(ctx, metadata.KeyLastSyncTime,
		[]byte(strconv.FormatInt(finished.UnixMilli(), 10))); err != nil {
		e.log.Warn(ctx, "cannot persist last sync time", "error", err)
	}
	e.status.succeed(finished)

	e.log.Info(ctx, "sync finished",
		"uploaded", res.Uploaded, "downloaded", res.Downloaded, "errors", len(res.Errors))
	return res, nil
}

// DeleteItem removes the item's remote traces: the tombstone is recorded
// first so the next reconciliation cannot resurrect the row, then the remote
// document and blob are deleted. A blob-delete failure is tolerated since the
// document deletion is authoritative. Removing the local row is the caller's
// responsibility.
func (e *Engine) DeleteItem(ctx context.Context, item *models.Item) error {
	if item.RemoteID == "" && item.BlobID == "" {
		return nil
	}

	if item.RemoteID != "" {
		if err := e.items.InsertTombstone(ctx, item.RemoteID, e.userID, e.now().UTC()); err != nil {
			return fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
		}
	}

	if !e.checker.Online(ctx) {
		return common.ErrNoConnectivity
	}

	if item.RemoteID != "" {
		if err := e.remote.DeleteDocument(ctx, item.RemoteID); err != nil {
			return err
		}
	}

	if item.BlobID != "" && e.blobs != nil {
		if err := e.blobs.Delete(ctx, item.BlobID); err != nil {
			e.log.Warn(ctx, "blob delete failed", "blob_id", item.BlobID, "error", err)
		}
	}

	return nil
}

func (e *Engine) uploadPhase(ctx context.Context, res *Result) error {
	locals, err := e.items.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
	}

	for i := range locals {
		item := &locals[i]
		if err := e.pushItem(ctx, item); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("upload %q: %v", item.Title, err))
			e.log.Warn(ctx, "item upload failed", "title", item.Title, "error", err)
			continue
		}
		res.Uploaded++
	}
	return nil
}

// pushItem migrates the attachment if needed, upserts the remote document and
// persists any new remote id or attachment link on the local row. The stored
// updated_at is not bumped, so a push never makes the remote copy look stale.
func (e *Engine) pushItem(ctx context.Context, item *models.Item) error {
	migrated, err := e.migrateAttachment(ctx, item)
	if err != nil {
		return err
	}

	remoteID, err := e.remote.UpsertDocument(ctx, item)
	if err != nil {
		return err
	}

	if migrated || item.RemoteID == "" {
		item.RemoteID = remoteID
		if _, err := e.items.Upsert(ctx, item); err != nil {
			return fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
		}
	}
	return nil
}

// migrateAttachment uploads a local-only attachment and replaces ImageRef and
// BlobID in place. Items that already have a blob, no attachment, or no blob
// client configured are left as they are.
func (e *Engine) migrateAttachment(ctx context.Context, item *models.Item) (bool, error) {
	if !item.HasLocalAttachment() || item.BlobID != "" || e.blobs == nil {
		return false, nil
	}

	link, blobID, err := e.blobs.Upload(ctx, item.ImageRef)
	if err != nil {
		return false, err
	}

	item.ImageRef = link
	item.BlobID = blobID
	return true, nil
}

// downloadPhase merges every non-tombstoned remote document into the local
// store. Failures here never abort the phase; they are accumulated per item.
func (e *Engine) downloadPhase(ctx context.Context, res *Result) {
	docs, err := e.remote.FetchAll(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("fetch remote items: %v", err))
		return
	}

	dead, err := e.items.TombstoneRemoteIDs(ctx, e.userID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("load tombstones: %v", err))
		return
	}

	for i := range docs {
		doc := &docs[i]
		if _, ok := dead[doc.RemoteID]; ok {
			continue
		}
		applied, err := e.mergeRemote(ctx, doc)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("download %q: %v", doc.Title, err))
			e.log.Warn(ctx, "item download failed", "title", doc.Title, "error", err)
			continue
		}
		if applied {
			res.Downloaded++
		}
	}
}

// mergeRemote applies one remote document. A row matched by natural key is
// overwritten only when the remote copy is strictly newer; a tie keeps the
// local copy. Local row identity is always preserved, and a missing remote id
// is backfilled even when the local copy wins.
func (e *Engine) mergeRemote(ctx context.Context, doc *models.Item) (bool, error) {
	local, err := e.items.FindByNaturalKey(ctx, doc.Key())
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
	}

	if local == nil {
		incoming := *doc
		incoming.ID = 0
		e.fetchAttachment(ctx, &incoming)
		if _, err := e.items.Upsert(ctx, &incoming); err != nil {
			return false, fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
		}
		return true, nil
	}

	if doc.UpdatedAt.After(local.UpdatedAt) {
		merged := *doc
		merged.ID = local.ID
		e.fetchAttachment(ctx, &merged)
		// A newer remote copy without an attachment does not discard one the
		// local row already has.
		if merged.BlobID == "" {
			merged.BlobID = local.BlobID
		}
		if merged.ImageRef == "" {
			merged.ImageRef = local.ImageRef
		}
		if _, err := e.items.Upsert(ctx, &merged); err != nil {
			return false, fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
		}
		return true, nil
	}

	if local.RemoteID == "" && doc.RemoteID != "" {
		local.RemoteID = doc.RemoteID
		if _, err := e.items.Upsert(ctx, local); err != nil {
			return false, fmt.Errorf("%w: %w", common.ErrLocalStoreFailed, err)
		}
	}
	return false, nil
}

// fetchAttachment pulls the item's blob into the local attachments directory
// and points ImageRef at the downloaded file. On failure the remote link is
// kept, so the item is still usable and a later run can retry.
func (e *Engine) fetchAttachment(ctx context.Context, item *models.Item) {
	if item.BlobID == "" || e.blobs == nil {
		return
	}
	localPath, err := e.blobs.Download(ctx, item.BlobID, filepath.Base(item.BlobID))
	if err != nil {
		e.log.Warn(ctx, "attachment download failed", "blob_id", item.BlobID, "error", err)
		return
	}
	item.ImageRef = localPath
}

// sweepTombstones drops deletion markers past the retention window. This is
// housekeeping; failure is logged and never escalates.
func (e *Engine) sweepTombstones(ctx context.Context) {
	cutoff := e.now().UTC().Add(-common.TombstoneRetention)
	if err := e.items.PurgeTombstonesOlderThan(ctx, e.userID, cutoff); err != nil {
		e.log.Warn(ctx, "tombstone sweep failed", "error", err)
	}
}
