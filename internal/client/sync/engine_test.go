package sync

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/repositories/items"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE items (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  remote_id     TEXT,
  kind          TEXT NOT NULL,
  title         TEXT NOT NULL,
  company       TEXT NOT NULL,
  category      TEXT,
  notes         TEXT,
  image_ref     TEXT,
  blob_id       TEXT,
  purchase_date INTEGER,
  expiry_date   INTEGER,
  reminder_lead INTEGER NOT NULL DEFAULT 0,
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL
);
CREATE TABLE tombstones (
  remote_id  TEXT NOT NULL,
  user_id    TEXT NOT NULL,
  deleted_at INTEGER NOT NULL,
  PRIMARY KEY (remote_id, user_id)
);
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

type fakeChecker struct {
	online bool
}

func (c *fakeChecker) Online(context.Context) bool { return c.online }

// fakeRemote keeps documents in a map keyed by remote id. failTitles makes
// UpsertDocument fail for specific items.
type fakeRemote struct {
	docs       map[string]models.Item
	nextID     int
	failTitles map[string]error
	fetchErr   error
	deleted    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: map[string]models.Item{}, failTitles: map[string]error{}}
}

func (f *fakeRemote) UpsertDocument(_ context.Context, item *models.Item) (string, error) {
	if err := f.failTitles[item.Title]; err != nil {
		return "", err
	}
	id := item.RemoteID
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("remote-%d", f.nextID)
	}
	doc := *item
	doc.RemoteID = id
	f.docs[id] = doc
	return id, nil
}

func (f *fakeRemote) DeleteDocument(_ context.Context, remoteID string) error {
	delete(f.docs, remoteID)
	f.deleted = append(f.deleted, remoteID)
	return nil
}

func (f *fakeRemote) FetchAll(context.Context) ([]models.Item, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Item, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type fakeBlobs struct {
	uploads   int
	downloads int
	deleted   []string
	deleteErr error
}

func (b *fakeBlobs) Upload(_ context.Context, localPath string) (string, string, error) {
	b.uploads++
	return "https://blobs.local/" + localPath, "users/u1/" + localPath, nil
}

func (b *fakeBlobs) Download(_ context.Context, blobID, destName string) (string, error) {
	b.downloads++
	return "attachments/" + destName, nil
}

func (b *fakeBlobs) Delete(_ context.Context, blobID string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, blobID)
	return nil
}

type testEnv struct {
	engine  *Engine
	items   items.Repository
	meta    metadata.Repository
	remote  *fakeRemote
	blobs   *fakeBlobs
	checker *fakeChecker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupDB(t)

	env := &testEnv{
		items:   items.NewSQLiteRepository(db),
		meta:    metadata.NewSQLiteRepository(db),
		remote:  newFakeRemote(),
		blobs:   &fakeBlobs{},
		checker: &fakeChecker{online: true},
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.engine = NewEngine(Options{
		Items:    env.items,
		Metadata: env.meta,
		Remote:   env.remote,
		Blobs:    env.blobs,
		Checker:  env.checker,
		Logger:   log,
		UserID:   "u1",
		Now:      func() time.Time { return baseTime },
	})
	return env
}

func localItem(title, company string, updatedAt time.Time) *models.Item {
	return &models.Item{
		Kind:      models.KindWarranty,
		Title:     title,
		Company:   company,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestSyncItem_Offline(t *testing.T) {
	env := newTestEnv(t)
	env.checker.online = false

	_, err := env.engine.SyncItem(context.Background(), localItem("Drill", "ToolCo", baseTime))
	assert.ErrorIs(t, err, common.ErrNoConnectivity)
	assert.Empty(t, env.remote.docs)
}

func TestSyncItem_MigratesAttachmentAndBackfillsRemoteID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := localItem("Drill", "ToolCo", baseTime)
	item.ImageRef = "receipt.jpg"
	_, err := env.items.Upsert(ctx, item)
	require.NoError(t, err)

	remoteID, err := env.engine.SyncItem(ctx, item)
	require.NoError(t, err)
	assert.NotEmpty(t, remoteID)
	assert.Equal(t, 1, env.blobs.uploads)

	stored, err := env.items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, remoteID, stored.RemoteID)
	assert.Equal(t, "https://blobs.local/receipt.jpg", stored.ImageRef)
	assert.Equal(t, "users/u1/receipt.jpg", stored.BlobID)
	assert.False(t, stored.HasLocalAttachment())
}

func TestSyncItem_AlreadyMigratedAttachmentNotReuploaded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := localItem("Drill", "ToolCo", baseTime)
	item.ImageRef = "attachments/abc.jpg"
	item.BlobID = "users/u1/abc.jpg"
	_, err := env.items.Upsert(ctx, item)
	require.NoError(t, err)

	_, err = env.engine.SyncItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 0, env.blobs.uploads)
}

func TestSyncAll_Offline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.items.Upsert(ctx, localItem("Drill", "ToolCo", baseTime))
	require.NoError(t, err)
	env.checker.online = false

	_, err = env.engine.SyncAll(ctx)
	assert.ErrorIs(t, err, common.ErrNoConnectivity)

	assert.Empty(t, env.remote.docs)
	stored, err := env.items.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].RemoteID)

	st := env.engine.Status()
	assert.Equal(t, StateError, st.State)
}

func TestSyncAll_UploadsLocalItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.items.Upsert(ctx, localItem("Drill", "ToolCo", baseTime))
	require.NoError(t, err)
	_, err = env.items.Upsert(ctx, localItem("Mixer", "KitchenCo", baseTime))
	require.NoError(t, err)

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)
	assert.Empty(t, res.Errors)
	assert.Len(t, env.remote.docs, 2)

	// every local row now carries its remote id
	stored, err := env.items.GetAll(ctx)
	require.NoError(t, err)
	for _, it := range stored {
		assert.NotEmpty(t, it.RemoteID)
	}

	st := env.engine.Status()
	assert.Equal(t, StateSuccess, st.State)
	require.NotNil(t, st.LastSyncAt)
	assert.Equal(t, baseTime, *st.LastSyncAt)

	last, err := env.engine.LastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, baseTime, *last)
}

func TestSyncAll_PerItemFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := env.items.Upsert(ctx, localItem(title, "Co", baseTime))
		require.NoError(t, err)
	}
	env.remote.failTitles["Two"] = common.ErrRemoteWriteFailed

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Two")

	st := env.engine.Status()
	assert.Equal(t, StateSuccess, st.State)
}

func TestSyncAll_ErrorStatusOnlyWhenNothingMoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.items.Upsert(ctx, localItem("One", "Co", baseTime))
	require.NoError(t, err)
	env.remote.failTitles["One"] = common.ErrRemoteWriteFailed

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 0, res.Downloaded)
	require.Len(t, res.Errors, 1)

	st := env.engine.Status()
	assert.Equal(t, StateError, st.State)
	assert.Contains(t, st.Message, "One")

	// a failed run does not move the last-sync marker
	last, err := env.engine.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestSyncAll_DownloadsNewRemoteItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := *localItem("Camera", "PhotoCo", baseTime)
	doc.RemoteID = "remote-cam"
	doc.BlobID = "users/u1/cam.jpg"
	doc.ImageRef = "https://blobs.local/cam.jpg"
	env.remote.docs["remote-cam"] = doc

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, env.blobs.downloads)

	stored, err := env.items.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "remote-cam", stored[0].RemoteID)
	assert.Equal(t, "attachments/cam.jpg", stored[0].ImageRef)
	assert.Equal(t, "users/u1/cam.jpg", stored[0].BlobID)
}

func TestSyncAll_RemoteWinsOnlyWhenStrictlyNewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	local := localItem("Drill", "ToolCo", baseTime.Add(-time.Hour))
	local.Notes = "local notes"
	_, err := env.items.Upsert(ctx, local)
	require.NoError(t, err)

	doc := *localItem("Drill", "ToolCo", baseTime)
	doc.RemoteID = "remote-drill"
	doc.Notes = "remote notes"
	env.remote.docs["remote-drill"] = doc

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)

	stored, err := env.items.GetByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote notes", stored.Notes)
	assert.Equal(t, "remote-drill", stored.RemoteID)
	assert.Equal(t, local.ID, stored.ID)
	assert.Equal(t, baseTime, stored.UpdatedAt)

	// re-running with no intervening changes applies nothing further
	res, err = env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
}

func TestSyncAll_RemoteWinsKeepsLocalAttachmentWhenRemoteHasNone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	local := localItem("Drill", "ToolCo", baseTime.Add(-time.Hour))
	local.RemoteID = "remote-drill"
	local.ImageRef = "attachments/drill.jpg"
	local.BlobID = "users/u1/drill.jpg"
	_, err := env.items.Upsert(ctx, local)
	require.NoError(t, err)

	env.remote.failTitles["Drill"] = common.ErrRemoteWriteFailed

	doc := *localItem("Drill", "ToolCo", baseTime)
	doc.RemoteID = "remote-drill"
	doc.Notes = "remote notes"
	env.remote.docs["remote-drill"] = doc

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)

	stored, err := env.items.GetByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote notes", stored.Notes)
	assert.Equal(t, "attachments/drill.jpg", stored.ImageRef)
	assert.Equal(t, "users/u1/drill.jpg", stored.BlobID)
	assert.Equal(t, 0, env.blobs.downloads)
}

func TestSyncAll_TieKeepsLocalAndBackfillsRemoteID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	local := localItem("Drill", "ToolCo", baseTime)
	local.Notes = "local notes"
	_, err := env.items.Upsert(ctx, local)
	require.NoError(t, err)

	// keep the upload phase from assigning a remote id of its own, so the
	// row reaches the merge without one
	env.remote.failTitles["Drill"] = common.ErrRemoteWriteFailed

	doc := *localItem("Drill", "ToolCo", baseTime)
	doc.RemoteID = "remote-drill"
	doc.Notes = "remote notes"
	env.remote.docs["remote-drill"] = doc

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)

	stored, err := env.items.GetByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "local notes", stored.Notes)
	assert.Equal(t, "remote-drill", stored.RemoteID)
}

func TestSyncAll_TombstonedRemoteItemIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.items.InsertTombstone(ctx, "abc123", "u1", baseTime.Add(-time.Hour)))

	doc := *localItem("Ghost", "GoneCo", baseTime)
	doc.RemoteID = "abc123"
	doc.BlobID = "users/u1/ghost.jpg"
	env.remote.docs["abc123"] = doc

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)

	stored, err := env.items.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
	// the skip happens before any attachment work
	assert.Equal(t, 0, env.blobs.downloads)
}

func TestSyncAll_TombstoneRetentionSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := baseTime.Add(-common.TombstoneRetention - time.Hour)
	fresh := baseTime.Add(-common.TombstoneRetention + time.Hour)
	require.NoError(t, env.items.InsertTombstone(ctx, "old", "u1", old))
	require.NoError(t, env.items.InsertTombstone(ctx, "fresh", "u1", fresh))

	_, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)

	left, err := env.items.TombstoneRemoteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, left, "old")
	assert.Contains(t, left, "fresh")
}

func TestSyncAll_SecondConcurrentCallRejected(t *testing.T) {
	env := newTestEnv(t)

	env.engine.inFlight.Store(true)
	_, err := env.engine.SyncAll(context.Background())
	assert.ErrorIs(t, err, common.ErrSyncInProgress)
	env.engine.inFlight.Store(false)

	_, err = env.engine.SyncAll(context.Background())
	assert.NoError(t, err)
}

func TestSyncAll_FetchFailureRecordedNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.items.Upsert(ctx, localItem("Drill", "ToolCo", baseTime))
	require.NoError(t, err)
	env.remote.fetchErr = common.ErrRemoteReadFailed

	res, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Uploaded)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "fetch remote items")
}

func TestDeleteItem_RecordsTombstoneAndDeletesRemote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := *localItem("Drill", "ToolCo", baseTime)
	doc.RemoteID = "abc123"
	env.remote.docs["abc123"] = doc

	item := localItem("Drill", "ToolCo", baseTime)
	item.RemoteID = "abc123"
	item.BlobID = "users/u1/drill.jpg"

	require.NoError(t, env.engine.DeleteItem(ctx, item))

	tombs, err := env.items.TombstoneRemoteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, tombs, "abc123")
	assert.NotContains(t, env.remote.docs, "abc123")
	assert.Equal(t, []string{"users/u1/drill.jpg"}, env.blobs.deleted)
}

func TestDeleteItem_BlobFailureTolerated(t *testing.T) {
	env := newTestEnv(t)

	item := localItem("Drill", "ToolCo", baseTime)
	item.RemoteID = "abc123"
	item.BlobID = "users/u1/drill.jpg"
	env.blobs.deleteErr = fmt.Errorf("storage hiccup")

	assert.NoError(t, env.engine.DeleteItem(context.Background(), item))
}

func TestDeleteItem_NeverSyncedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.checker.online = false

	item := localItem("Drill", "ToolCo", baseTime)
	assert.NoError(t, env.engine.DeleteItem(context.Background(), item))
}

func TestDeleteItem_ThenSyncDoesNotResurrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := localItem("Drill", "ToolCo", baseTime)
	item.RemoteID = "abc123"
	require.NoError(t, env.engine.DeleteItem(ctx, item))

	// the document is still present remotely, e.g. re-created by a slow
	// writer on another device
	doc := *localItem("Drill", "ToolCo", baseTime)
	doc.RemoteID = "abc123"
	env.remote.docs["abc123"] = doc

	_, err := env.engine.SyncAll(ctx)
	require.NoError(t, err)

	stored, err := env.items.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSubscribe_ObservesTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ch, cancel := env.engine.Subscribe()
	defer cancel()

	st := <-ch
	assert.Equal(t, StateIdle, st.State)

	_, err := env.items.Upsert(ctx, localItem("Drill", "ToolCo", baseTime))
	require.NoError(t, err)
	_, err = env.engine.SyncAll(ctx)
	require.NoError(t, err)

	// buffered subscription keeps the latest value
	st = <-ch
	assert.Equal(t, StateSuccess, st.State)
	require.NotNil(t, st.LastSyncAt)
}
